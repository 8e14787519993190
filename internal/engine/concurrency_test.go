package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
)

const racers = 20

func TestConcurrentPlaceOrderCreatesOne(t *testing.T) {
	f := newTestEngineAt(t, filepath.Join(t.TempDir(), "academy.db"))
	ctx := context.Background()

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.eng.PlaceOrder(ctx, student, OrderRequest{PriceRequest: PriceRequest{DoorID: "door-1"}})
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case !errors.Is(err, apperr.ErrDuplicateOrder):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}

	list, _, err := f.eng.ListStudentOrders(ctx, student.StudentID, model.Page{})
	if err != nil {
		t.Fatalf("ListStudentOrders: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("stored orders = %d, want 1", len(list))
	}
}

func TestConcurrentStartAttemptKeepsOneDocument(t *testing.T) {
	f := newTestEngineAt(t, filepath.Join(t.TempDir(), "academy.db"))
	ctx := context.Background()
	f.entitle(t)
	exam := f.exam(t, 30, 5)

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.eng.StartAttempt(ctx, student, exam.ID)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Errorf("StartAttempt: %v", err)
		}
	}

	list, err := f.store.AllStudentExams(ctx, student.StudentID)
	if err != nil {
		t.Fatalf("AllStudentExams: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("attempt documents = %d, want 1", len(list))
	}
	se := list[0]
	if se.AttemptCount != racers || len(se.AttemptRecords) != se.AttemptCount {
		t.Errorf("attempt count = %d, records = %d, want %d each", se.AttemptCount, len(se.AttemptRecords), racers)
	}
	for i, rec := range se.AttemptRecords {
		if rec.AttemptNumber != i+1 {
			t.Errorf("record %d has attempt number %d", i, rec.AttemptNumber)
		}
	}
}
