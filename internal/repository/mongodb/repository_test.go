package mongodb

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

// openTestRepository connects to MONGODB_URI with a throwaway database.
func openTestRepository(t *testing.T) *MongoDBRepository {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "xchicks_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	repo, err := NewMongoDBRepository(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = repo.client.Database(dbName).Drop(ctx)
		_ = repo.Close(ctx)
	})
	return repo
}

func TestSaveDailyReportUpsertsByDate(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	first := models.DailyReport{Date: day, RequestsSubmitted: 3, ChicksAllocated: 40, SalesTotal: "57000.00", CreatedAt: day.Add(20 * time.Hour)}
	if err := repo.SaveDailyReport(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	rerun := first
	rerun.RequestsApproved = 2
	rerun.SalesTotal = "91000.00"
	if err := repo.SaveDailyReport(ctx, rerun); err != nil {
		t.Fatalf("second save: %v", err)
	}
	other := models.DailyReport{Date: day.AddDate(0, 0, 1), SalesTotal: "0.00"}
	if err := repo.SaveDailyReport(ctx, other); err != nil {
		t.Fatalf("next day save: %v", err)
	}

	n, err := repo.collection().CountDocuments(ctx, bson.M{"date": day})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("documents for %s = %d, want 1", day.Format("2006-01-02"), n)
	}

	var got models.DailyReport
	if err := repo.collection().FindOne(ctx, bson.M{"date": day}).Decode(&got); err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.RequestsApproved != 2 || got.SalesTotal != "91000.00" || got.ChicksAllocated != 40 {
		t.Fatalf("report not replaced: %+v", got)
	}

	total, err := repo.collection().CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count all: %v", err)
	}
	if total != 2 {
		t.Fatalf("total documents = %d, want 2", total)
	}
}

func TestNewMongoDBRepositoryCreatesUniqueDateIndex(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	cur, err := repo.collection().Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	var indexes []bson.M
	if err := cur.All(ctx, &indexes); err != nil {
		t.Fatalf("decode indexes: %v", err)
	}

	for _, idx := range indexes {
		keys, ok := idx["key"].(bson.M)
		if !ok || len(keys) != 1 {
			continue
		}
		if _, onDate := keys["date"]; onDate {
			if unique, _ := idx["unique"].(bool); !unique {
				t.Fatalf("date index is not unique: %v", idx)
			}
			return
		}
	}
	t.Fatalf("no index on date in %v", indexes)
}
