package models

import "testing"

func TestCatalogItem(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			item    CatalogItem
			wantErr bool
		}{
			{name: "valid", item: CatalogItem{ID: 1, Name: "Hollow Knight"}},
			{name: "zero id", item: CatalogItem{Name: "x"}, wantErr: true},
			{name: "blank name", item: CatalogItem{ID: 1, Name: "  "}, wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.item.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("Company Roles", func(t *testing.T) {
		item := CatalogItem{
			ID:   1,
			Name: "Celeste",
			Companies: []Company{
				{Name: "Maddy Makes Games", Developer: true, Publisher: true},
				{Name: "Porting House", Developer: true},
			},
		}

		if got := item.Developers(); len(got) != 2 {
			t.Errorf("expected 2 developers, got %v", got)
		}
		if got := item.Publishers(); len(got) != 1 || got[0] != "Maddy Makes Games" {
			t.Errorf("expected one publisher, got %v", got)
		}
	})
}

func TestLibraryEntryValidate(t *testing.T) {
	valid := LibraryEntry{ID: "abc", UserID: 1, CatalogItemID: 42}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid entry, got %v", err)
	}

	badPlatform := valid
	badPlatform.Platform = &Platform{ID: 0, Name: "PC"}
	if err := badPlatform.Validate(); err == nil {
		t.Error("expected error for zero platform id")
	}

	noUser := valid
	noUser.UserID = 0
	if err := noUser.Validate(); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestQueryConstructors(t *testing.T) {
	q := SearchQuery("zelda", 5)
	if q.Kind != QueryByName || q.Text != "zelda" || q.Limit != 5 {
		t.Errorf("unexpected search query %+v", q)
	}
	d := DetailQuery(7)
	if d.Kind != QueryByID || d.ID != 7 {
		t.Errorf("unexpected detail query %+v", d)
	}
	if QueryKind(0).String() != "unknown" {
		t.Errorf("expected unknown kind string")
	}
}
