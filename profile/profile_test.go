package profile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func str(s string) *string { return &s }

var testID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func TestMerge_New(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p := Merge(nil, testID, Fields{FullName: str("Ada"), Location: Some("London")}, now)

	if p.ID != testID || p.FullName != "Ada" || p.Headline != "" {
		t.Fatalf("unexpected row: %+v", p)
	}
	if p.Location == nil || *p.Location != "London" || p.GoodAt != nil {
		t.Fatalf("unexpected optional fields: %+v", p)
	}
	if p.AudioURLs == nil || len(p.AudioURLs) != 0 {
		t.Fatalf("expected empty audio_urls, got %#v", p.AudioURLs)
	}
	if !p.CreatedAt.Equal(now) || !p.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set: %+v", p)
	}
}

func TestMerge_PartialUpdate(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := Merge(nil, testID, Fields{FullName: str("Ada"), Headline: str("Engineer"), GoodAt: Some("Go")}, created)

	later := created.Add(time.Hour)
	urls := []string{"https://cdn.example/a.webm"}
	p := Merge(&existing, testID, Fields{Headline: str("Staff Engineer"), AudioURLs: Some(urls)}, later)

	if p.FullName != "Ada" || p.Headline != "Staff Engineer" || p.GoodAt == nil || *p.GoodAt != "Go" {
		t.Fatalf("unsupplied fields must be kept: %+v", p)
	}
	if len(p.AudioURLs) != 1 || p.AudioURLs[0] != urls[0] {
		t.Fatalf("audio_urls = %v", p.AudioURLs)
	}
	if !p.CreatedAt.Equal(created) || !p.UpdatedAt.Equal(later) {
		t.Fatalf("timestamps: created %v updated %v", p.CreatedAt, p.UpdatedAt)
	}
	if existing.Headline != "Engineer" {
		t.Fatalf("Merge modified its input")
	}
}

func TestMerge_ExplicitNullClears(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	urls := []string{"https://cdn.example/a.webm"}
	existing := Merge(nil, testID, Fields{
		FullName:  str("Ada"),
		Location:  Some("Paris"),
		GoodAt:    Some("Go"),
		AudioURLs: Some(urls),
	}, created)

	var f Fields
	if err := json.Unmarshal([]byte(`{"location":null,"audio_urls":null,"full_name":null}`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Empty() {
		t.Fatalf("explicit nulls must count as supplied")
	}
	if !f.Location.Present || f.Location.Value != nil || f.GoodAt.Present {
		t.Fatalf("decoded fields: %+v", f)
	}

	p := Merge(&existing, testID, f, created.Add(time.Hour))
	if p.Location != nil {
		t.Fatalf("location = %q, want nil", *p.Location)
	}
	if p.AudioURLs == nil || len(p.AudioURLs) != 0 {
		t.Fatalf("audio_urls = %#v, want empty list", p.AudioURLs)
	}
	if p.FullName != "Ada" {
		t.Fatalf("null full_name must be ignored, got %q", p.FullName)
	}
	if p.GoodAt == nil || *p.GoodAt != "Go" {
		t.Fatalf("absent good_at must be kept: %+v", p)
	}

	p = Merge(&p, testID, Fields{GoodAt: Null[string]()}, created.Add(2*time.Hour))
	if p.GoodAt != nil {
		t.Fatalf("good_at = %q, want nil", *p.GoodAt)
	}
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := ParseID(uuid.Nil.String()); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("nil uuid must be rejected")
	}
	if id, err := ParseID(testID.String()); err != nil || id != testID {
		t.Fatalf("ParseID = %v, %v", id, err)
	}
}

func TestService_UpsertIsIdempotent(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()
	sub := testID.String()

	f := Fields{FullName: str("Ada"), Headline: str("Engineer")}
	first, err := svc.Upsert(ctx, sub, f)
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, sub, f)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if first.ID != second.ID || second.FullName != "Ada" || second.Headline != "Engineer" {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed on upsert")
	}

	got, err := svc.Get(ctx, sub)
	if err != nil || got.FullName != "Ada" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
}

func TestService_UpsertPartialKeepsFields(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()
	sub := testID.String()

	if _, err := svc.Upsert(ctx, sub, Fields{FullName: str("Ada"), WantToHelp: Some("mentoring")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	p, err := svc.Upsert(ctx, sub, Fields{Headline: str("CTO")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if p.FullName != "Ada" || p.Headline != "CTO" || p.WantToHelp == nil || *p.WantToHelp != "mentoring" {
		t.Fatalf("partial upsert lost fields: %+v", p)
	}
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()

	unconfigured := NewService(nil, nil)
	if _, err := unconfigured.Get(ctx, testID.String()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := unconfigured.Ready(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from Ready, got %v", err)
	}

	svc := NewService(NewMemoryStore(), nil)
	if _, err := svc.Get(ctx, testID.String()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, testID.String(), Fields{Headline: str("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Update, got %v", err)
	}
	if _, err := svc.Upsert(ctx, "user-42", Fields{}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestMemoryStore_ConcurrentUpsertSingleRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := s.Upsert(ctx, testID, Fields{FullName: str("Ada")})
			if err != nil {
				t.Errorf("Upsert: %v", err)
				return
			}
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly one create, got %d", created)
	}
	if len(s.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(s.rows))
	}
}

func TestFields_Empty(t *testing.T) {
	if !(Fields{}).Empty() {
		t.Fatalf("zero Fields must be empty")
	}
	if (Fields{Location: Some("")}).Empty() {
		t.Fatalf("supplied empty string is not empty Fields")
	}
	if (Fields{AvatarURL: Null[string]()}).Empty() {
		t.Fatalf("explicit null is not empty Fields")
	}
}
