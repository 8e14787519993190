package engine

import (
	"context"
	"testing"

	"github.com/pavelanni/academy/internal/apperr"
)

func TestImportCatalog(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	data := []byte(`{"courses":[{"id":"course-3","title":"Biology","price":"60",
		"doors":[{"id":"door-4","title":"Cells","price":"25","lessons":[{"id":"lesson-4","title":"Membranes"}]}]}]}`)

	res, err := f.eng.ImportCatalog(ctx, "biology.json", data)
	if err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}
	if res.Unchanged || res.Courses != 1 || res.Doors != 1 || res.Lessons != 1 {
		t.Errorf("first import = %+v", res)
	}
	pq, err := f.eng.QuotePrice(ctx, PriceRequest{DoorID: "door-4"})
	if err != nil {
		t.Fatalf("QuotePrice: %v", err)
	}
	if !pq.FinalPrice.Equal(dec(25)) {
		t.Errorf("imported door price = %s", pq.FinalPrice)
	}

	res, err = f.eng.ImportCatalog(ctx, "biology.json", data)
	if err != nil {
		t.Fatalf("second ImportCatalog: %v", err)
	}
	if !res.Unchanged || res.Courses != 0 {
		t.Errorf("second import = %+v, want unchanged", res)
	}

	_, err = f.eng.ImportCatalog(ctx, "broken.json", []byte("{"))
	wantErr(t, err, apperr.KindValidation)
}
