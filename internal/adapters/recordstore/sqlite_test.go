package recordstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/domain/model"
)

func newStore(t *testing.T) *recordstore.SQLite {
	t.Helper()
	s, err := recordstore.NewSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleEntity(name string) model.PartnerEntity {
	now := time.Now().UTC().Truncate(time.Second)
	return model.PartnerEntity{
		ID:          uuid.NewString(),
		Name:        name,
		Description: "Fresh seafood by the lake",
		Location:    model.Coordinates{Lat: 21.03, Lng: 105.85},
		Address:     "12 Trần Hưng Đạo",
		Category:    "restaurant",
		Tags:        []string{"seafood", "family"},
		Priority:    1,
		Rating:      4.5,
		ReviewCount: 120,
		Status:      model.StatusActive,
		SyncStatus:  model.SyncPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSQLite_CRUD(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := newStore(t)

		Convey("When an entity is created and read back", func() {
			want := sampleEntity("Biển Đông")
			So(s.Create(ctx, want), ShouldBeNil)

			got, err := s.Get(ctx, want.ID)

			Convey("Then every field round-trips", func() {
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, want.Name)
				So(got.Tags, ShouldResemble, want.Tags)
				So(got.Location.Lat, ShouldAlmostEqual, want.Location.Lat)
				So(got.Status, ShouldEqual, model.StatusActive)
				So(got.SyncStatus, ShouldEqual, model.SyncPending)
				So(got.LastSyncAttemptAt, ShouldBeNil)
			})
		})

		Convey("When the same ID is inserted twice", func() {
			e := sampleEntity("Biển Đông")
			So(s.Create(ctx, e), ShouldBeNil)

			err := s.Create(ctx, e)

			So(err, ShouldWrap, recordstore.ErrDuplicate)
		})

		Convey("When fetching an unknown ID", func() {
			_, err := s.Get(ctx, "ghost")

			So(err, ShouldWrap, recordstore.ErrNotFound)
		})

		Convey("When an entity is updated", func() {
			e := sampleEntity("Biển Đông")
			So(s.Create(ctx, e), ShouldBeNil)

			e.Name = "Biển Đông 2"
			e.Rating = 4.8
			e.UpdatedAt = e.UpdatedAt.Add(time.Minute)
			So(s.Update(ctx, e), ShouldBeNil)

			got, err := s.Get(ctx, e.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Biển Đông 2")
			So(got.Rating, ShouldEqual, 4.8)
		})

		Convey("When an entity is deleted", func() {
			e := sampleEntity("Biển Đông")
			So(s.Create(ctx, e), ShouldBeNil)
			So(s.Delete(ctx, e.ID), ShouldBeNil)

			_, err := s.Get(ctx, e.ID)
			So(err, ShouldWrap, recordstore.ErrNotFound)

			Convey("And deleting it again reports not found", func() {
				So(s.Delete(ctx, e.ID), ShouldWrap, recordstore.ErrNotFound)
			})
		})
	})
}

func TestSQLite_List(t *testing.T) {
	Convey("Given a store with mixed entities", t, func() {
		ctx := context.Background()
		s := newStore(t)

		for i := 0; i < 3; i++ {
			e := sampleEntity(fmt.Sprintf("Quán %d", i))
			e.Category = "restaurant"
			So(s.Create(ctx, e), ShouldBeNil)
		}
		hotel := sampleEntity("Khách sạn Sen")
		hotel.Category = "hotel"
		hotel.Status = model.StatusInactive
		hotel.Rating = 3.2
		So(s.Create(ctx, hotel), ShouldBeNil)

		Convey("When filtering by category", func() {
			got, err := s.List(ctx, recordstore.ListFilter{Category: "hotel"})

			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Name, ShouldEqual, "Khách sạn Sen")
		})

		Convey("When filtering by status", func() {
			got, err := s.List(ctx, recordstore.ListFilter{Status: model.StatusActive})

			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 3)
		})

		Convey("When filtering by name fragment", func() {
			got, err := s.List(ctx, recordstore.ListFilter{NameLike: "Sen"})

			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
		})

		Convey("When filtering by minimum rating", func() {
			got, err := s.List(ctx, recordstore.ListFilter{MinRating: 4.0})

			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 3)
		})

		Convey("When limiting", func() {
			got, err := s.List(ctx, recordstore.ListFilter{Limit: 2})

			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})
	})
}

func TestSQLite_SyncLifecycle(t *testing.T) {
	Convey("Given a pending entity", t, func() {
		ctx := context.Background()
		s := newStore(t)
		e := sampleEntity("Biển Đông")
		So(s.Create(ctx, e), ShouldBeNil)

		Convey("When the projection succeeds", func() {
			So(s.MarkSynced(ctx, e.ID, "vec-1"), ShouldBeNil)

			got, err := s.Get(ctx, e.ID)

			Convey("Then state, index ID and attempt time are recorded", func() {
				So(err, ShouldBeNil)
				So(got.SyncStatus, ShouldEqual, model.SyncSynced)
				So(got.SearchIndexID, ShouldEqual, "vec-1")
				So(got.SyncError, ShouldBeEmpty)
				So(got.LastSyncAttemptAt, ShouldNotBeNil)
			})
		})

		Convey("When the projection fails", func() {
			So(s.MarkSyncFailed(ctx, e.ID, "index unreachable"), ShouldBeNil)

			got, err := s.Get(ctx, e.ID)

			Convey("Then the failure and attempt count are recorded", func() {
				So(err, ShouldBeNil)
				So(got.SyncStatus, ShouldEqual, model.SyncFailed)
				So(got.SyncError, ShouldEqual, "index unreachable")
				So(got.SyncAttempts, ShouldEqual, 1)
			})
		})

		Convey("When a failed entity is reset to pending", func() {
			So(s.MarkSyncFailed(ctx, e.ID, "boom"), ShouldBeNil)
			So(s.MarkSyncPending(ctx, e.ID), ShouldBeNil)

			got, err := s.Get(ctx, e.ID)

			So(err, ShouldBeNil)
			So(got.SyncStatus, ShouldEqual, model.SyncPending)
			So(got.SyncError, ShouldBeEmpty)
		})
	})
}

func TestSQLite_ListNeedingSync(t *testing.T) {
	Convey("Given entities in every sync state", t, func() {
		ctx := context.Background()
		s := newStore(t)

		pending := sampleEntity("Pending")
		So(s.Create(ctx, pending), ShouldBeNil)

		synced := sampleEntity("Synced")
		So(s.Create(ctx, synced), ShouldBeNil)
		So(s.MarkSynced(ctx, synced.ID, "vec-s"), ShouldBeNil)

		failed := sampleEntity("Failed")
		So(s.Create(ctx, failed), ShouldBeNil)
		So(s.MarkSyncFailed(ctx, failed.ID, "boom"), ShouldBeNil)

		exhausted := sampleEntity("Exhausted")
		So(s.Create(ctx, exhausted), ShouldBeNil)
		for i := 0; i < 5; i++ {
			So(s.MarkSyncFailed(ctx, exhausted.ID, "boom"), ShouldBeNil)
		}

		inactive := sampleEntity("Inactive")
		inactive.Status = model.StatusInactive
		So(s.Create(ctx, inactive), ShouldBeNil)

		Convey("When listing retry candidates", func() {
			got, err := s.ListNeedingSync(ctx, 10)

			Convey("Then only pending and under-cap failed actives qualify", func() {
				So(err, ShouldBeNil)
				ids := make(map[string]bool, len(got))
				for _, e := range got {
					ids[e.ID] = true
				}
				So(ids[pending.ID], ShouldBeTrue)
				So(ids[failed.ID], ShouldBeTrue)
				So(ids[synced.ID], ShouldBeFalse)
				So(ids[exhausted.ID], ShouldBeFalse)
				So(ids[inactive.ID], ShouldBeFalse)
			})
		})

		Convey("When aggregating stats", func() {
			stats, err := s.SyncStats(ctx)

			So(err, ShouldBeNil)
			So(stats.Total, ShouldEqual, 5)
			So(stats.Synced, ShouldEqual, 1)
			So(stats.Pending, ShouldEqual, 2)
			So(stats.Failed, ShouldEqual, 2)
		})
	})
}
