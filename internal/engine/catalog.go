package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
)

// CatalogResult reports what a catalog import wrote.
type CatalogResult struct {
	Name      string `json:"name"`
	Unchanged bool   `json:"unchanged"`
	Courses   int    `json:"courses"`
	Doors     int    `json:"doors"`
	Lessons   int    `json:"lessons"`
}

// ImportCatalog upserts the courses, doors and lessons of a catalog file.
// A file whose content hash matches the last import under the same name is
// skipped.
func (e *Engine) ImportCatalog(ctx context.Context, name string, data []byte) (CatalogResult, error) {
	res := CatalogResult{Name: name}
	var cat model.CatalogImport
	if err := json.Unmarshal(data, &cat); err != nil {
		return res, apperr.ErrValidation.With("catalog %s is not valid JSON", name).Wrap(err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	err := e.run(ctx, "import_catalog", func(t *txn) error {
		res.Courses, res.Doors, res.Lessons = 0, 0, 0
		stored, err := t.GetImportedFileHash(ctx, name)
		if err != nil {
			return err
		}
		if stored == hash {
			res.Unchanged = true
			return nil
		}
		res.Courses, res.Doors, res.Lessons, err = t.ImportCatalog(ctx, cat)
		if err != nil {
			return err
		}
		return t.SetImportedFileHash(ctx, name, hash)
	})
	if err != nil {
		return res, err
	}
	if res.Unchanged {
		slog.Info("catalog unchanged, skipping", "name", name)
	} else {
		slog.Info("imported catalog", "name", name, "courses", res.Courses, "doors", res.Doors, "lessons", res.Lessons)
	}
	return res, nil
}
