package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("survey_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateQuestionnaire_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	q, err := CreateQuestionnaire(context.Background(), db, "t1", "pulse", "Pulse", false)
	if err == nil || q != nil {
		t.Fatalf("expected error creating without table, got q=%v err=%v", q, err)
	}
}

func TestCreateAndGetQuestionnaire(t *testing.T) {
	db := newRepoDB(t, &domain.Questionnaire{})
	ctx := context.Background()

	q, err := CreateQuestionnaire(ctx, db, "t1", "pulse", "Pulse", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.ID == "" || !q.Active || !q.IsDefault {
		t.Fatalf("created questionnaire unexpected: %+v", q)
	}

	got, err := GetQuestionnaireBySlug(ctx, db, "t1", "pulse")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != q.ID {
		t.Fatalf("got %q want %q", got.ID, q.ID)
	}

	// The slug is tenant-scoped: another tenant sees nothing.
	if _, err := GetQuestionnaireBySlug(ctx, db, "t2", "pulse"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant get: err = %v; want ErrNotFound", err)
	}

	// The same slug in another tenant is allowed; a duplicate in the same
	// tenant violates ux_tenant_slug.
	if _, err := CreateQuestionnaire(ctx, db, "t2", "pulse", "Other", false); err != nil {
		t.Fatalf("same slug other tenant: %v", err)
	}
	if _, err := CreateQuestionnaire(ctx, db, "t1", "pulse", "Dup", false); err == nil {
		t.Fatalf("duplicate slug in same tenant must fail")
	}
}

func TestListQuestionnaires_ScopedAndOrdered(t *testing.T) {
	db := newRepoDB(t, &domain.Questionnaire{})
	ctx := context.Background()

	for i, slug := range []string{"first", "second", "third"} {
		q := &domain.Questionnaire{
			ID:        fmt.Sprintf("q%d", i),
			TenantID:  "t1",
			Slug:      slug,
			Name:      slug,
			Active:    true,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(q).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_, _ = CreateQuestionnaire(ctx, db, "t2", "other", "Other", false)

	out, err := ListQuestionnaires(ctx, db, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 || out[0].Slug != "third" || out[2].Slug != "first" {
		t.Fatalf("list scope/order wrong: %+v", out)
	}
}

func TestDeactivateQuestionnaire(t *testing.T) {
	db := newRepoDB(t, &domain.Questionnaire{})
	ctx := context.Background()

	if err := DeactivateQuestionnaire(ctx, db, "t1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deactivate missing: err = %v; want ErrNotFound", err)
	}

	q, _ := CreateQuestionnaire(ctx, db, "t1", "pulse", "Pulse", false)
	if err := DeactivateQuestionnaire(ctx, db, "t1", "pulse"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, _ := GetQuestionnaireBySlug(ctx, db, "t1", "pulse")
	if got.Active {
		t.Fatalf("questionnaire %s still active after deactivate", q.ID)
	}
}

func TestClearDefaultQuestionnaire(t *testing.T) {
	db := newRepoDB(t, &domain.Questionnaire{})
	ctx := context.Background()

	_, _ = CreateQuestionnaire(ctx, db, "t1", "a", "A", true)
	_, _ = CreateQuestionnaire(ctx, db, "t2", "b", "B", true)

	if err := ClearDefaultQuestionnaire(ctx, db, "t1"); err != nil {
		t.Fatalf("clear default: %v", err)
	}
	a, _ := GetQuestionnaireBySlug(ctx, db, "t1", "a")
	if a.IsDefault {
		t.Fatalf("t1 default not cleared")
	}
	b, _ := GetQuestionnaireBySlug(ctx, db, "t2", "b")
	if !b.IsDefault {
		t.Fatalf("other tenant's default must be untouched")
	}
}
