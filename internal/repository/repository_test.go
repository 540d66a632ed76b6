package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/testdb"
)

type testEnv struct {
	ctx        context.Context
	db         *testdb.DB
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	db := testdb.New(t)
	return &testEnv{
		ctx:        context.Background(),
		db:         db,
		repository: NewWithPool(db.Pool, 5*time.Second),
	}
}

func (e *testEnv) seedCatalog(t testing.TB) map[string]int64 {
	t.Helper()
	ids := map[string]int64{
		"interstellar": e.db.SeedTitle(t, testdb.TitleSeed{
			Name:     "Interstellar",
			Synopsis: "Explorers travel through a wormhole in space.",
			Type:     "movie",
			Studio:   "Paramount",
			Genres:   []string{"Sci-Fi", "Drama"},
		}),
		"dark": e.db.SeedTitle(t, testdb.TitleSeed{
			Name:     "Dark",
			Synopsis: "A missing child sets four families on a hunt through time.",
			Type:     "series",
			Studio:   "Netflix",
			Genres:   []string{"Sci-Fi", "Mystery"},
		}),
		"amelie": e.db.SeedTitle(t, testdb.TitleSeed{
			Name:     "Amelie",
			Synopsis: "A shy waitress decides to change the lives of those around her.",
			Type:     "movie",
			Genres:   []string{"Romance"},
		}),
		"untagged": e.db.SeedTitle(t, testdb.TitleSeed{
			Name: "Untagged Short",
			Type: "movie",
		}),
	}
	return ids
}

func idsOf(items []domain.TitleSummary) map[int64]bool {
	set := make(map[int64]bool, len(items))
	for _, item := range items {
		set[item.ID] = true
	}
	return set
}

func TestTitlesRepository_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)

	all, err := env.repository.Titles.List(env.ctx, CatalogFilter{})
	if err != nil {
		t.Fatalf("List unfiltered: %v", err)
	}
	if len(all) != len(ids) {
		t.Fatalf("unfiltered size = %d, want %d", len(all), len(ids))
	}

	empty := ""
	blank, err := env.repository.Titles.List(env.ctx, CatalogFilter{Type: &empty, Genre: &empty, Search: &empty})
	if err != nil {
		t.Fatalf("List blank: %v", err)
	}
	if len(blank) != len(all) {
		t.Fatalf("blank criteria size = %d, want %d", len(blank), len(all))
	}

	tests := []struct {
		name   string
		filter CatalogFilter
		want   []string
	}{
		{"type movie", CatalogFilter{Type: strPtr("movie")}, []string{"interstellar", "amelie", "untagged"}},
		{"type series", CatalogFilter{Type: strPtr("series")}, []string{"dark"}},
		{"genre case-insensitive", CatalogFilter{Genre: strPtr("sci-fi")}, []string{"interstellar", "dark"}},
		{"search synopsis", CatalogFilter{Search: strPtr("WORMHOLE")}, []string{"interstellar"}},
		{"search title", CatalogFilter{Search: strPtr("ameli")}, []string{"amelie"}},
		{"genre and type", CatalogFilter{Genre: strPtr("Sci-Fi"), Type: strPtr("series")}, []string{"dark"}},
		{"no match", CatalogFilter{Search: strPtr("zzz-no-such-title")}, nil},
		{"literal percent", CatalogFilter{Search: strPtr("%")}, nil},
	}

	unfiltered := idsOf(all)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.repository.Titles.List(env.ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got == nil {
				t.Fatalf("List returned nil slice, want empty")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("size = %d, want %d (%+v)", len(got), len(tt.want), got)
			}
			gotIDs := idsOf(got)
			for _, key := range tt.want {
				if !gotIDs[ids[key]] {
					t.Fatalf("missing %s in %+v", key, got)
				}
			}
			for id := range gotIDs {
				if !unfiltered[id] {
					t.Fatalf("filtered result contains %d not in unfiltered listing", id)
				}
			}
		})
	}
}

func TestTitlesRepository_GenreFilterKeepsAllGenres(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)

	got, err := env.repository.Titles.List(env.ctx, CatalogFilter{Genre: strPtr("Drama")})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != ids["interstellar"] {
		t.Fatalf("unexpected result %+v", got)
	}
	if got[0].Genres != "Drama,Sci-Fi" {
		t.Fatalf("Genres = %q, want Drama,Sci-Fi", got[0].Genres)
	}
	if got[0].StudioName == nil || *got[0].StudioName != "Paramount" {
		t.Fatalf("StudioName = %v, want Paramount", got[0].StudioName)
	}
}

func TestTitlesRepository_OrderAndLimit(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)

	alice := env.db.SeedUser(t, "alice")
	for key, score := range map[string]int{"amelie": 9, "dark": 7, "interstellar": 8} {
		if _, _, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: alice, TitleID: ids[key], Score: score}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if _, err := env.repository.Ratings.Recompute(env.ctx, ids[key]); err != nil {
			t.Fatalf("recompute: %v", err)
		}
	}

	top, err := env.repository.Titles.List(env.ctx, CatalogFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].ID != ids["amelie"] || top[1].ID != ids["interstellar"] {
		t.Fatalf("unexpected order: %+v", top)
	}

	all, err := env.repository.Titles.List(env.ctx, CatalogFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if last := all[len(all)-1]; last.ID != ids["untagged"] || last.RatingAverage != nil {
		t.Fatalf("unrated title should sort last, got %+v", last)
	}
}

func TestTitlesRepository_GetByIDAndStaff(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)

	title, err := env.repository.Titles.GetByID(env.ctx, ids["dark"])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if title.Name != "Dark" || title.Type != domain.TitleTypeSeries {
		t.Fatalf("unexpected title %+v", title)
	}
	if title.RatingCount != 0 || title.RatingAverage != nil {
		t.Fatalf("unrated title aggregate = %v/%d", title.RatingAverage, title.RatingCount)
	}

	untagged, err := env.repository.Titles.GetByID(env.ctx, ids["untagged"])
	if err != nil {
		t.Fatalf("GetByID untagged: %v", err)
	}
	if untagged.StudioName != nil || untagged.Genres != "" {
		t.Fatalf("left joins should yield empty studio/genres, got %+v", untagged)
	}

	if _, err := env.repository.Titles.GetByID(env.ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	jonas := "Jonas Kahnwald"
	env.db.SeedPerson(t, ids["dark"], "Louis Hofmann", "actor", &jonas)
	env.db.SeedPerson(t, ids["dark"], "Baran bo Odar", "director", nil)

	staff, err := env.repository.Titles.Staff(env.ctx, ids["dark"])
	if err != nil {
		t.Fatalf("Staff: %v", err)
	}
	if len(staff) != 2 {
		t.Fatalf("staff size = %d, want 2", len(staff))
	}
	if staff[0].Role != "actor" || staff[0].CharacterName == nil || *staff[0].CharacterName != jonas {
		t.Fatalf("unexpected actor row %+v", staff[0])
	}
	if staff[1].CharacterName != nil {
		t.Fatalf("director should have no character, got %v", *staff[1].CharacterName)
	}

	none, err := env.repository.Titles.Staff(env.ctx, ids["amelie"])
	if err != nil || len(none) != 0 {
		t.Fatalf("Staff without credits = %v, %v", none, err)
	}
}

func TestTitlesRepository_Genres(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	genres, err := env.repository.Titles.Genres(env.ctx)
	if err != nil {
		t.Fatalf("Genres: %v", err)
	}
	var names []string
	for _, g := range genres {
		names = append(names, g.Name)
	}
	want := []string{"Drama", "Mystery", "Romance", "Sci-Fi"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Fatalf("genres = %v, want %v", names, want)
	}
}

func TestRatingsRepository_UpsertAndRecompute(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)
	titleID := ids["interstellar"]
	u1 := env.db.SeedUser(t, "user1")
	u2 := env.db.SeedUser(t, "user2")

	agg, err := env.repository.Ratings.Recompute(env.ctx, titleID)
	if err != nil {
		t.Fatalf("recompute empty: %v", err)
	}
	if agg.Count != 0 || agg.Average != nil {
		t.Fatalf("empty aggregate = %v/%d, want nil/0", agg.Average, agg.Count)
	}

	rating, inserted, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: u1, TitleID: titleID, Score: 7})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !inserted || rating.Score != 7 {
		t.Fatalf("first upsert inserted=%v score=%d", inserted, rating.Score)
	}
	if _, inserted, err = env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: u2, TitleID: titleID, Score: 9}); err != nil || !inserted {
		t.Fatalf("second rater upsert: inserted=%v err=%v", inserted, err)
	}

	agg, err = env.repository.Ratings.Recompute(env.ctx, titleID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	assertAggregate(t, agg, 8.0, 2)

	if _, inserted, err = env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: u1, TitleID: titleID, Score: 5}); err != nil || inserted {
		t.Fatalf("overwrite upsert: inserted=%v err=%v", inserted, err)
	}
	agg, err = env.repository.Ratings.Recompute(env.ctx, titleID)
	if err != nil {
		t.Fatalf("recompute after overwrite: %v", err)
	}
	assertAggregate(t, agg, 7.0, 2)

	stored, err := env.repository.Titles.GetByID(env.ctx, titleID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.RatingCount != 2 || stored.RatingAverage == nil || *stored.RatingAverage != 7.0 {
		t.Fatalf("stored aggregate = %v/%d, want 7/2", stored.RatingAverage, stored.RatingCount)
	}

	fetched, err := env.repository.Ratings.Get(env.ctx, u1, titleID)
	if err != nil || fetched.Score != 5 {
		t.Fatalf("Get = %+v, %v", fetched, err)
	}
	if _, err := env.repository.Ratings.Get(env.ctx, u2, ids["dark"]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing rating, got %v", err)
	}
}

func TestRatingsRepository_ConstraintErrors(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)
	user := env.db.SeedUser(t, "bounds")

	_, _, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: user, TitleID: ids["dark"], Score: 11})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("score 11: got %v, want ErrValidation", err)
	}

	_, _, err = env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: user, TitleID: 987654, Score: 5})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown title: got %v, want ErrNotFound", err)
	}

	if _, err := env.repository.Ratings.Recompute(env.ctx, 987654); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("recompute unknown title: got %v, want ErrNotFound", err)
	}
}

func TestRatingsRepository_ConcurrentUpsertsAndRecompute(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)
	titleID := ids["dark"]

	const workers = 12
	users := make([]int64, workers)
	for i := range users {
		users[i] = env.db.SeedUser(t, fmt.Sprintf("user-%d", i))
	}

	var wg sync.WaitGroup
	sum := 0
	for i := 0; i < workers; i++ {
		score := i%10 + 1
		sum += score
		wg.Add(1)
		go func(userID int64, score int) {
			defer wg.Done()
			if _, _, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: userID, TitleID: titleID, Score: score}); err != nil {
				t.Errorf("upsert failed for %d: %v", userID, err)
				return
			}
			if _, err := env.repository.Ratings.Recompute(env.ctx, titleID); err != nil {
				t.Errorf("recompute failed for %d: %v", userID, err)
			}
		}(users[i], score)
	}
	wg.Wait()

	stored, err := env.repository.Titles.GetByID(env.ctx, titleID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	want := float64(sum) / workers
	if stored.RatingCount != workers || stored.RatingAverage == nil || math.Abs(*stored.RatingAverage-want) > 1e-9 {
		t.Fatalf("stored aggregate = %v/%d, want %v/%d", stored.RatingAverage, stored.RatingCount, want, workers)
	}

	live, err := env.repository.Ratings.Aggregate(env.ctx, titleID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if live.Count != stored.RatingCount || *live.Average != *stored.RatingAverage {
		t.Fatalf("live aggregate %v/%d differs from stored %v/%d", *live.Average, live.Count, *stored.RatingAverage, stored.RatingCount)
	}
}

func TestListsRepository_UpsertIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)
	user := env.db.SeedUser(t, "lister")

	params := ListEntryUpsertParams{UserID: user, TitleID: ids["dark"], Status: domain.ListStatusWatching, Progress: 3}
	entry, inserted, err := env.repository.Lists.Upsert(env.ctx, params)
	if err != nil || !inserted {
		t.Fatalf("first upsert inserted=%v err=%v", inserted, err)
	}
	if entry.Status != domain.ListStatusWatching || entry.Progress != 3 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	params.Progress = 4
	params.Status = domain.ListStatusCompleted
	entry, inserted, err = env.repository.Lists.Upsert(env.ctx, params)
	if err != nil || inserted {
		t.Fatalf("second upsert inserted=%v err=%v", inserted, err)
	}
	if entry.Status != domain.ListStatusCompleted || entry.Progress != 4 {
		t.Fatalf("entry not overwritten: %+v", entry)
	}

	var rows int
	if err := env.db.Pool.QueryRow(env.ctx, `SELECT COUNT(*) FROM user_lists WHERE user_id = $1 AND title_id = $2`, user, ids["dark"]).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("rows = %d, want 1", rows)
	}

	if _, _, err := env.repository.Lists.Upsert(env.ctx, ListEntryUpsertParams{UserID: user, TitleID: ids["amelie"], Status: domain.ListStatusPlanned}); err != nil {
		t.Fatalf("upsert planned: %v", err)
	}
	entries, err := env.repository.Lists.ListByUser(env.ctx, user)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 2 || entries[0].TitleName != "Amelie" {
		t.Fatalf("unexpected list %+v", entries)
	}
}

func TestListsRepository_ConcurrentSameKey(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)
	user := env.db.SeedUser(t, "racer")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(progress int) {
			defer wg.Done()
			_, _, err := env.repository.Lists.Upsert(env.ctx, ListEntryUpsertParams{
				UserID: user, TitleID: ids["amelie"], Status: domain.ListStatusWatching, Progress: progress,
			})
			if err != nil {
				t.Errorf("concurrent upsert: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := env.repository.Lists.ListByUser(env.ctx, user)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestReviewsRepository_CreateAndRecent(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedCatalog(t)
	user := env.db.SeedUser(t, "critic")

	params := ReviewCreateParams{UserID: user, TitleID: ids["amelie"], Content: "Charming."}
	first, err := env.repository.Reviews.Create(env.ctx, params)
	if err != nil {
		t.Fatalf("first review: %v", err)
	}
	second, err := env.repository.Reviews.Create(env.ctx, params)
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("identical reviews must be distinct rows")
	}

	for i := 0; i < 11; i++ {
		if _, err := env.repository.Reviews.Create(env.ctx, ReviewCreateParams{UserID: user, TitleID: ids["amelie"], Content: fmt.Sprintf("note %d", i)}); err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
	}

	recent, err := env.repository.Reviews.Recent(env.ctx, ids["amelie"], 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("recent = %d, want 10", len(recent))
	}
	if recent[0].Content != "note 10" || recent[0].Username != "critic" {
		t.Fatalf("newest review first, got %+v", recent[0])
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].CreatedAt.After(recent[i-1].CreatedAt) {
			t.Fatalf("reviews not ordered newest first at %d", i)
		}
	}

	if _, err := env.repository.Reviews.Create(env.ctx, ReviewCreateParams{UserID: user, TitleID: ids["amelie"], Content: "   "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank content: got %v, want ErrValidation", err)
	}
}

func TestUsersRepository_CreateConflict(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.repository.Users.Create(env.ctx, UserCreateParams{Username: "neo", Email: "neo@example.test", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID <= 0 {
		t.Fatalf("invalid id %d", user.ID)
	}

	_, err = env.repository.Users.Create(env.ctx, UserCreateParams{Username: "neo", Email: "other@example.test", PasswordHash: "hash"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate username: got %v, want ErrConflict", err)
	}

	got, err := env.repository.Users.GetByUsername(env.ctx, "neo")
	if err != nil || got.ID != user.ID {
		t.Fatalf("GetByUsername = %+v, %v", got, err)
	}
	if _, err := env.repository.Users.GetByUsername(env.ctx, "trinity"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoundTripTimeout(t *testing.T) {
	env := newTestEnv(t)
	repo := NewWithPool(env.db.Pool, time.Nanosecond)

	_, err := repo.Titles.List(env.ctx, CatalogFilter{})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func assertAggregate(t *testing.T, agg domain.RatingAggregate, avg float64, count int64) {
	t.Helper()
	if agg.Count != count {
		t.Fatalf("count = %d, want %d", agg.Count, count)
	}
	if agg.Average == nil || math.Abs(*agg.Average-avg) > 1e-9 {
		t.Fatalf("average = %v, want %v", agg.Average, avg)
	}
}

func BenchmarkTitlesRepositoryList(b *testing.B) {
	env := newTestEnv(b)
	env.seedCatalog(b)
	filter := CatalogFilter{Genre: strPtr("Sci-Fi"), Search: strPtr("time")}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.repository.Titles.List(env.ctx, filter); err != nil {
			b.Fatalf("list: %v", err)
		}
	}
}

func BenchmarkRatingsRepositoryUpsertRecompute(b *testing.B) {
	env := newTestEnv(b)
	ids := env.seedCatalog(b)

	for i := 0; i < b.N; i++ {
		user := env.db.SeedUser(b, fmt.Sprintf("bench-%d", i))
		if _, _, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{UserID: user, TitleID: ids["dark"], Score: 8}); err != nil {
			b.Fatalf("upsert: %v", err)
		}
		if _, err := env.repository.Ratings.Recompute(env.ctx, ids["dark"]); err != nil {
			b.Fatalf("recompute: %v", err)
		}
	}
}
