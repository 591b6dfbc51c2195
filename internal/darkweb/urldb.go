package darkweb

import (
	"strings"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/sentrywatch/threatwatch/internal/storage"
)

// urlStatus mirrors the three states the original URL table tracked in
// its "status" column (§4.9.6).
type urlStatus string

const (
	urlStatusUnset   urlStatus = ""
	urlStatusOnline  urlStatus = "Online"
	urlStatusUnknown urlStatus = "Unknown"
	urlStatusOffline urlStatus = "Offline"
)

// urlRecord is the badgerhold-persisted row for one discovered URL,
// equivalent field-for-field to the original URL table (§4.9.6).
type urlRecord struct {
	ID                  uint64 `badgerhold:"key"`
	Type                string
	URL                 string `badgerholdIndex:"URL"`
	Title               string
	BaseURL             string
	Status              urlStatus `badgerholdIndex:"Status"`
	CountStatus         int
	Source              string
	Categorie           string
	ScoreCategorie      int
	Keywords            string
	ScoreKeywords       int
	DiscoveryDate       time.Time
	LastScan            time.Time
	FullMatchCategorie  string
}

// URLDatabase is the durable discovery/crawl-state store for dark-web
// URLs (§4.9.6), backed by the shared badgerhold store.
type URLDatabase struct {
	db *storage.DB

	mu     sync.Mutex
	nextID uint64
}

// NewURLDatabase wraps db for URL-table operations, seeding the
// autoincrement counter from the highest id currently stored.
func NewURLDatabase(db *storage.DB) (*URLDatabase, error) {
	u := &URLDatabase{db: db}
	var rows []urlRecord
	if err := db.Store().Find(&rows, badgerhold.Where("ID").Ge(uint64(0)).SortBy("ID").Reverse().Limit(1)); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		u.nextID = rows[0].ID
	}
	return u, nil
}

func (u *URLDatabase) allocateID() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextID++
	return u.nextID
}

// Save inserts a new URL row, unconditionally (mirrors the original
// save(), which never checked for duplicates).
func (u *URLDatabase) Save(rawURL, source, urlType, baseURL string) error {
	rec := urlRecord{
		ID:            u.allocateID(),
		Type:          urlType,
		URL:           strings.ToLower(rawURL),
		Source:        source,
		BaseURL:       baseURL,
		DiscoveryDate: time.Now(),
	}
	return u.db.Store().Insert(rec.ID, rec)
}

// BatchSave inserts every url in urls not already present (checked via a
// single query over the whole batch), returning the count actually
// inserted (§4.9.1, §4.9.6).
func (u *URLDatabase) BatchSave(urls []string, source, urlType, baseURL string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	existing := map[string]bool{}
	var rows []urlRecord
	if err := u.db.Store().Find(&rows, badgerhold.Where("URL").In(toInterfaceSlice(urls)...)); err != nil {
		return 0, err
	}
	for _, r := range rows {
		existing[r.URL] = true
	}

	inserted := 0
	now := time.Now()
	for _, raw := range urls {
		lower := strings.ToLower(raw)
		if existing[lower] {
			continue
		}
		rec := urlRecord{
			ID:            u.allocateID(),
			Type:          urlType,
			URL:           lower,
			Source:        source,
			BaseURL:       baseURL,
			DiscoveryDate: now,
		}
		if err := u.db.Store().Insert(rec.ID, rec); err != nil {
			return inserted, err
		}
		existing[lower] = true
		inserted++
	}
	return inserted, nil
}

// SelectURL returns the row for rawURL, or (nil, false) if absent.
func (u *URLDatabase) SelectURL(rawURL string) (*urlRecord, bool) {
	var rows []urlRecord
	if err := u.db.Store().Find(&rows, badgerhold.Where("URL").Eq(strings.ToLower(rawURL))); err != nil || len(rows) == 0 {
		return nil, false
	}
	return &rows[0], true
}

// Select returns rows excluding status "Offline", optionally filtered to
// those meeting minimum category/keyword score thresholds (rows without a
// score recorded yet still pass, as in the original query's OR-NULL
// clause) (§4.9.2, §4.9.6).
func (u *URLDatabase) Select(minCategorie, minKeywords *int) ([]urlRecord, error) {
	var rows []urlRecord
	if err := u.db.Store().Find(&rows, badgerhold.Where("Status").Ne(urlStatusOffline)); err != nil {
		return nil, err
	}
	if minCategorie == nil && minKeywords == nil {
		return rows, nil
	}
	out := make([]urlRecord, 0, len(rows))
	for _, r := range rows {
		if minCategorie != nil && r.ScoreCategorie != 0 && r.ScoreCategorie < *minCategorie {
			continue
		}
		if minKeywords != nil && r.ScoreKeywords != 0 && r.ScoreKeywords < *minKeywords {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateStatus records the outcome of a fetch attempt. A non-200 result
// increments the consecutive-failure counter and marks the URL Unknown,
// or Offline when the counter was already above countCategories before
// this failure (with countCategories 3, the fifth consecutive failure);
// a 200 resets the counter and marks it Online (§4.9.6).
func (u *URLDatabase) UpdateStatus(id uint64, httpCode, countCategories int) error {
	var rec urlRecord
	if err := u.db.Store().Get(id, &rec); err != nil {
		return err
	}

	if httpCode != 200 {
		if rec.CountStatus <= countCategories {
			rec.CountStatus++
			rec.Status = urlStatusUnknown
		} else {
			rec.CountStatus++
			rec.Status = urlStatusOffline
		}
	} else {
		rec.Status = urlStatusOnline
		rec.CountStatus = 0
	}
	rec.LastScan = time.Now()

	return u.db.Store().Update(id, rec)
}

// UpdateCategorie records the categorizer/keyword-matcher outcome for id.
func (u *URLDatabase) UpdateCategorie(id uint64, categorie, title, fullMatchCategorie string, scoreCategorie int, keywords string, scoreKeywords int) error {
	var rec urlRecord
	if err := u.db.Store().Get(id, &rec); err != nil {
		return err
	}
	if title == "" {
		title = "Untitled"
	}
	rec.Categorie = categorie
	rec.Title = title
	rec.FullMatchCategorie = fullMatchCategorie
	rec.ScoreCategorie = scoreCategorie
	rec.Keywords = keywords
	rec.ScoreKeywords = scoreKeywords
	return u.db.Store().Update(id, rec)
}

func toInterfaceSlice(urls []string) []interface{} {
	lower := make([]interface{}, len(urls))
	for i, u := range urls {
		lower[i] = strings.ToLower(u)
	}
	return lower
}
