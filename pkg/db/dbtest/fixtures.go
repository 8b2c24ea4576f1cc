package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
)

// Category inserts a category with the given name.
func Category(t testing.TB, conn *gorm.DB, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name}
	if err := conn.Create(&category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// Item inserts a published item priced at 10/day; mutate adjusts it first.
func Item(t testing.TB, conn *gorm.DB, mutate ...func(*models.Item)) models.Item {
	t.Helper()
	item := models.Item{
		Name:        "item-" + uuid.NewString()[:8],
		Status:      enums.ItemStatusPublished,
		PricePerDay: decimal.NewFromInt(10),
		CreatedAt:   time.Now().UTC(),
	}
	for _, fn := range mutate {
		fn(&item)
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

// Profile inserts a management profile; mutate adjusts it first.
func Profile(t testing.TB, conn *gorm.DB, mutate ...func(*models.ItemManagementProfile)) models.ItemManagementProfile {
	t.Helper()
	profile := models.ItemManagementProfile{Name: "profile-" + uuid.NewString()[:8], CreatedAt: time.Now().UTC()}
	for _, fn := range mutate {
		fn(&profile)
	}
	if err := conn.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

// Insert creates arbitrary rows, failing the test on error.
func Insert(t testing.TB, conn *gorm.DB, rows ...any) {
	t.Helper()
	for _, row := range rows {
		if err := conn.Create(row).Error; err != nil {
			t.Fatalf("insert %T: %v", row, err)
		}
	}
}
