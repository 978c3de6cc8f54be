package app_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vinatravel/discovery/internal/adapters/embedding"
	"github.com/vinatravel/discovery/internal/adapters/places"
	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/adapters/vectorindex"
	"github.com/vinatravel/discovery/internal/app"
	"github.com/vinatravel/discovery/internal/config"
	"github.com/vinatravel/discovery/internal/domain/model"
	"github.com/vinatravel/discovery/pkg/logger"
)

const testDimension = 32

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// flakyIndex wraps the in-memory index with switchable failures.
type flakyIndex struct {
	*vectorindex.Memory
	mu         sync.Mutex
	fail       bool
	failDelete bool
}

func (f *flakyIndex) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *flakyIndex) setFailDelete(fail bool) {
	f.mu.Lock()
	f.failDelete = fail
	f.mu.Unlock()
}

func (f *flakyIndex) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *flakyIndex) deleteFailing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failDelete
}

func (f *flakyIndex) Upsert(ctx context.Context, p vectorindex.Point) error {
	if f.failing() {
		return vectorindex.ErrUnavailable
	}
	return f.Memory.Upsert(ctx, p)
}

func (f *flakyIndex) Search(ctx context.Context, q vectorindex.Query) ([]vectorindex.Match, error) {
	if f.failing() {
		return nil, vectorindex.ErrUnavailable
	}
	return f.Memory.Search(ctx, q)
}

func (f *flakyIndex) Delete(ctx context.Context, id string) error {
	if f.deleteFailing() {
		return vectorindex.ErrUnavailable
	}
	return f.Memory.Delete(ctx, id)
}

type fakePlaces struct {
	mu      sync.Mutex
	results []places.Place
	err     error
	geocode *model.Coordinates
	calls   int
}

func (f *fakePlaces) NearbySearch(_ context.Context, _ model.Coordinates, _ int, _ string) ([]places.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, f.err
}

func (f *fakePlaces) Geocode(_ context.Context, _ string) (*model.Coordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.geocode == nil {
		return nil, places.ErrNoResults
	}
	return f.geocode, nil
}

type fixture struct {
	svc    *app.Service
	index  *flakyIndex
	places *fakePlaces
	store  *recordstore.SQLite
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	cfg := config.New()
	cfg.VectorDimension = testDimension

	store, err := recordstore.NewSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	f := &fixture{
		index: &flakyIndex{Memory: vectorindex.NewMemory(testDimension)},
		places: &fakePlaces{results: []places.Place{
			{
				PlaceID:  "gp-1",
				Name:     "Nhà Hàng Sen",
				Rating:   4.6,
				Location: &model.Coordinates{Lat: 21.0250, Lng: 105.8520},
			},
		}},
		store: store,
	}

	all := append([]app.Option{
		app.WithVectorIndex(f.index),
		app.WithEmbedder(embedding.NewDeterministic(testDimension)),
		app.WithPlacesProvider(f.places),
		app.WithRecordStore(store),
	}, opts...)

	svc, err := app.New(ctx, cfg, all...)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	f.svc = svc
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return f
}

func f64(v float64) *float64 { return &v }

func seafoodInput() model.EntityInput {
	return model.EntityInput{
		Name:        "Quán Hải Sản Biển Đông",
		Description: "Fresh seafood by Hoan Kiem lake",
		Latitude:    f64(21.0301),
		Longitude:   f64(105.8503),
		Address:     "12 Trần Hưng Đạo",
		Category:    "restaurant",
		Tags:        []string{"seafood", "family"},
		Priority:    1,
		Rating:      4.5,
	}
}

func bunchaInput() model.EntityInput {
	return model.EntityInput{
		Name:        "Bún Chả Hương Liên",
		Description: "Grilled pork with noodles",
		Latitude:    f64(21.0169),
		Longitude:   f64(105.8508),
		Category:    "restaurant",
		Priority:    2,
	}
}

func TestAddEntity(t *testing.T) {
	Convey("Given a healthy engine", t, func() {
		ctx := context.Background()
		f := newFixture(t)

		Convey("When a partner place is onboarded", func() {
			entity, err := f.svc.AddEntity(ctx, seafoodInput())

			Convey("Then it is stored and projected inline", func() {
				So(err, ShouldBeNil)
				So(entity.ID, ShouldNotBeEmpty)
				So(entity.Status, ShouldEqual, model.StatusActive)
				So(entity.SyncStatus, ShouldEqual, model.SyncSynced)
				So(entity.SearchIndexID, ShouldEqual, entity.ID)
				So(f.index.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the input has no name", func() {
			_, err := f.svc.AddEntity(ctx, model.EntityInput{})

			So(err, ShouldWrap, app.ErrValidation)
		})

		Convey("When only a name is supplied", func() {
			_, err := f.svc.AddEntity(ctx, model.EntityInput{Name: "Only A Name"})

			So(err, ShouldWrap, app.ErrValidation)
		})

		Convey("When the description is missing", func() {
			input := seafoodInput()
			input.Description = " "

			_, err := f.svc.AddEntity(ctx, input)

			So(err, ShouldWrap, app.ErrValidation)
		})

		Convey("When the category is missing", func() {
			input := seafoodInput()
			input.Category = ""

			_, err := f.svc.AddEntity(ctx, input)

			So(err, ShouldWrap, app.ErrValidation)
		})

		Convey("When the coordinates are missing", func() {
			input := seafoodInput()
			input.Latitude = nil

			_, err := f.svc.AddEntity(ctx, input)

			So(err, ShouldWrap, app.ErrValidation)
		})

		Convey("When the priority is below one", func() {
			input := seafoodInput()
			input.Priority = -3

			entity, err := f.svc.AddEntity(ctx, input)

			Convey("Then it is clamped to the most-important value", func() {
				So(err, ShouldBeNil)
				So(entity.Priority, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an unreachable index", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		f.index.setFail(true)

		Convey("When a partner place is onboarded", func() {
			entity, err := f.svc.AddEntity(ctx, seafoodInput())

			Convey("Then the record survives with a failed projection", func() {
				So(err, ShouldBeNil)
				So(entity.SyncStatus, ShouldEqual, model.SyncFailed)
				So(entity.SyncAttempts, ShouldEqual, 1)
				So(entity.SyncError, ShouldNotBeEmpty)
				So(f.index.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSearch(t *testing.T) {
	Convey("Given an engine with one partner and one external place", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		_, err := f.svc.AddEntity(ctx, seafoodInput())
		So(err, ShouldBeNil)

		Convey("When searching for seafood", func() {
			result, err := f.svc.Search(ctx, app.SearchOptions{Query: "hải sản seafood"})

			Convey("Then the partner outranks the external result", func() {
				So(err, ShouldBeNil)
				So(result.Metadata.PartnerCount, ShouldEqual, 1)
				So(result.Metadata.ExternalCount, ShouldEqual, 1)
				So(result.Results, ShouldHaveLength, 2)
				So(result.Results[0].IsPartner, ShouldBeTrue)
				So(result.Results[0].Breakdown.PartnerBonus, ShouldEqual, 1000)
				So(result.Metadata.Cached, ShouldBeFalse)
			})
		})

		Convey("When the same search runs twice", func() {
			first, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})
			So(err, ShouldBeNil)
			second, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})

			Convey("Then the second response is served from cache", func() {
				So(err, ShouldBeNil)
				So(first.Metadata.Cached, ShouldBeFalse)
				So(second.Metadata.Cached, ShouldBeTrue)
				So(second.Results, ShouldHaveLength, len(first.Results))
				So(f.places.calls, ShouldEqual, 1)
			})
		})

		Convey("When an entity mutation lands between searches", func() {
			_, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})
			So(err, ShouldBeNil)
			_, err = f.svc.AddEntity(ctx, bunchaInput())
			So(err, ShouldBeNil)

			again, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})

			Convey("Then the cached payload was invalidated", func() {
				So(err, ShouldBeNil)
				So(again.Metadata.Cached, ShouldBeFalse)
			})
		})

		Convey("When no location is supplied", func() {
			result, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})

			Convey("Then proximity contributes nothing to any score", func() {
				So(err, ShouldBeNil)
				So(result.Results, ShouldNotBeEmpty)
				for _, r := range result.Results {
					So(r.Breakdown.DistanceScore, ShouldEqual, 0)
				}
			})
		})

		Convey("When a location is supplied", func() {
			result, err := f.svc.Search(ctx, app.SearchOptions{
				Query:    "seafood",
				Location: &model.Coordinates{Lat: 21.0285, Lng: 105.8048},
			})

			Convey("Then nearby places earn a proximity score", func() {
				So(err, ShouldBeNil)
				So(result.Results, ShouldNotBeEmpty)
				So(result.Results[0].Breakdown.DistanceScore, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the query is blank", func() {
			_, err := f.svc.Search(ctx, app.SearchOptions{Query: "   "})

			So(err, ShouldEqual, app.ErrEmptyQuery)
		})

		Convey("When the external provider fails", func() {
			f.places.err = errors.New("quota exceeded")

			result, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})

			Convey("Then the search degrades to partner results", func() {
				So(err, ShouldBeNil)
				So(result.Metadata.Degraded, ShouldBeTrue)
				So(result.Metadata.PartnerCount, ShouldEqual, 1)
				So(result.Metadata.ExternalCount, ShouldEqual, 0)
				So(result.Metadata.SourceErrors, ShouldContainKey, "external")
			})
		})

		Convey("When both sources fail", func() {
			f.places.err = errors.New("quota exceeded")
			f.index.setFail(true)

			_, err := f.svc.Search(ctx, app.SearchOptions{Query: "seafood"})

			So(err, ShouldEqual, app.ErrAllSourcesFailed)
		})
	})
}

func TestUpdateEntity(t *testing.T) {
	Convey("Given a projected entity", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		entity, err := f.svc.AddEntity(ctx, seafoodInput())
		So(err, ShouldBeNil)

		Convey("When a textual field changes", func() {
			name := "Quán Hải Sản Biển Đông 2"
			updated, err := f.svc.UpdateEntity(ctx, entity.ID, model.EntityUpdate{Name: &name})

			Convey("Then the entity is re-embedded and re-projected", func() {
				So(err, ShouldBeNil)
				So(updated.Name, ShouldEqual, name)
				So(updated.SyncStatus, ShouldEqual, model.SyncSynced)
			})
		})

		Convey("When only the rating changes", func() {
			rating := 4.9
			updated, err := f.svc.UpdateEntity(ctx, entity.ID, model.EntityUpdate{Rating: &rating})

			Convey("Then the index payload refreshes without a new projection", func() {
				So(err, ShouldBeNil)
				So(updated.SyncStatus, ShouldEqual, model.SyncSynced)

				matches, err := f.index.Search(ctx, vectorindex.Query{
					Vector: mustEmbed(t, "Quán Hải Sản Biển Đông seafood"),
					Limit:  1,
				})
				So(err, ShouldBeNil)
				So(matches[0].Metadata.Rating, ShouldEqual, 4.9)
			})
		})

		Convey("When the update is empty", func() {
			_, err := f.svc.UpdateEntity(ctx, entity.ID, model.EntityUpdate{})

			So(err, ShouldEqual, app.ErrEmptyUpdate)
		})

		Convey("When the entity does not exist", func() {
			name := "x"
			_, err := f.svc.UpdateEntity(ctx, "ghost", model.EntityUpdate{Name: &name})

			So(err, ShouldWrap, app.ErrNotFound)
		})

		Convey("When the entity is deactivated", func() {
			updated, err := f.svc.DeactivateEntity(ctx, entity.ID)

			Convey("Then it leaves the index but stays on record", func() {
				So(err, ShouldBeNil)
				So(updated.Status, ShouldEqual, model.StatusInactive)
				So(f.index.Len(), ShouldEqual, 0)

				got, err := f.svc.GetEntity(ctx, entity.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusInactive)
			})
		})
	})
}

func TestDeleteEntity(t *testing.T) {
	Convey("Given a projected entity", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		entity, err := f.svc.AddEntity(ctx, seafoodInput())
		So(err, ShouldBeNil)

		Convey("When it is deleted", func() {
			So(f.svc.DeleteEntity(ctx, entity.ID), ShouldBeNil)

			Convey("Then both stores forget it", func() {
				So(f.index.Len(), ShouldEqual, 0)
				_, err := f.svc.GetEntity(ctx, entity.ID)
				So(err, ShouldWrap, app.ErrNotFound)
			})
		})

		Convey("When the index delete fails", func() {
			f.index.setFailDelete(true)

			Convey("Then the record delete still goes through", func() {
				So(f.svc.DeleteEntity(ctx, entity.ID), ShouldBeNil)

				_, err := f.svc.GetEntity(ctx, entity.ID)
				So(err, ShouldWrap, app.ErrNotFound)
				So(f.index.Len(), ShouldEqual, 1)
			})
		})

		Convey("When deleting an unknown ID", func() {
			So(f.svc.DeleteEntity(ctx, "ghost"), ShouldWrap, app.ErrNotFound)
		})
	})
}

func TestRetrySync(t *testing.T) {
	Convey("Given an entity stuck in failed projection", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		f.index.setFail(true)

		entity, err := f.svc.AddEntity(ctx, seafoodInput())
		So(err, ShouldBeNil)
		So(entity.SyncStatus, ShouldEqual, model.SyncFailed)

		Convey("When the index recovers and a retry batch runs", func() {
			f.index.setFail(false)

			result, err := f.svc.RetrySync(ctx, 0)

			Convey("Then the entity ends up synced", func() {
				So(err, ShouldBeNil)
				So(result.Attempted, ShouldEqual, 1)
				So(result.Succeeded, ShouldEqual, 1)
				So(result.Failed, ShouldEqual, 0)

				got, err := f.svc.GetEntity(ctx, entity.ID)
				So(err, ShouldBeNil)
				So(got.SyncStatus, ShouldEqual, model.SyncSynced)
				So(f.index.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the batch is capped below the backlog", func() {
			_, err := f.svc.AddEntity(ctx, bunchaInput())
			So(err, ShouldBeNil)
			f.index.setFail(false)

			result, err := f.svc.RetrySync(ctx, 1)

			Convey("Then only one entity is attempted", func() {
				So(err, ShouldBeNil)
				So(result.Attempted, ShouldEqual, 1)
				So(result.Succeeded, ShouldEqual, 1)
			})
		})

		Convey("When the index stays down", func() {
			result, err := f.svc.RetrySync(ctx, 0)

			Convey("Then the batch reports the failures", func() {
				So(err, ShouldBeNil)
				So(result.Attempted, ShouldEqual, 1)
				So(result.Failed, ShouldEqual, 1)

				got, err := f.svc.GetEntity(ctx, entity.ID)
				So(err, ShouldBeNil)
				So(got.SyncAttempts, ShouldEqual, 2)
			})
		})
	})
}

func TestSyncStats(t *testing.T) {
	Convey("Given a mix of synced and failed entities", t, func() {
		ctx := context.Background()
		f := newFixture(t)

		_, err := f.svc.AddEntity(ctx, seafoodInput())
		So(err, ShouldBeNil)

		f.index.setFail(true)
		_, err = f.svc.AddEntity(ctx, bunchaInput())
		So(err, ShouldBeNil)

		Convey("When stats are aggregated", func() {
			stats, err := f.svc.SyncStats(ctx)

			So(err, ShouldBeNil)
			So(stats.Total, ShouldEqual, 2)
			So(stats.Synced, ShouldEqual, 1)
			So(stats.Failed, ShouldEqual, 1)
		})
	})
}

func TestResolveLocation(t *testing.T) {
	Convey("Given a provider that can geocode", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		f.places.geocode = &model.Coordinates{Lat: 21.0285, Lng: 105.8048}

		Convey("When resolving an address", func() {
			loc, err := f.svc.ResolveLocation(ctx, "Hoàn Kiếm, Hà Nội")

			So(err, ShouldBeNil)
			So(loc.Lat, ShouldAlmostEqual, 21.0285)
		})

		Convey("When the address is blank", func() {
			_, err := f.svc.ResolveLocation(ctx, " ")

			So(err, ShouldEqual, app.ErrEmptyQuery)
		})
	})
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	v, err := embedding.NewDeterministic(testDimension).Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embedding: %v", err)
	}
	return v
}
