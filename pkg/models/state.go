package models

// Status is the position of a target in its crawl state machine.
type Status string

const (
	StatusInit       Status = "init"
	StatusFiltered   Status = "filtered"
	StatusExtracting Status = "extracting"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// CrawlState is the whole progress of one target. It is a plain value so it
// can be written into the session checkpoint and restored after a restart.
//
// Collected holds the records of every page before CurrentPage. When
// CheckpointPath is set it names the snapshot file whose contents equal
// Collected.
type CrawlState struct {
	Target         SearchTarget     `json:"target"`
	CurrentPage    int              `json:"current_page"`
	LastPage       int              `json:"last_page"` // 0 until discovered
	Collected      []EmployeeRecord `json:"collected"`
	CheckpointPath string           `json:"checkpoint_path,omitempty"`
	PrefixURL      string           `json:"prefix_url,omitempty"`
	Status         Status           `json:"status"`
	SkippedPages   []int            `json:"skipped_pages,omitempty"`
	StartedOn      string           `json:"started_on,omitempty"` // date the target's files are named after
}

// NewCrawlState starts a target at page 1 with nothing collected.
func NewCrawlState(target SearchTarget) *CrawlState {
	return &CrawlState{
		Target:      target,
		CurrentPage: 1,
		Collected:   []EmployeeRecord{},
		Status:      StatusInit,
	}
}

// Resumable reports whether an earlier attempt stopped mid-crawl and the
// target can continue from CurrentPage instead of page 1.
func (s *CrawlState) Resumable() bool {
	if s == nil || s.Status == StatusDone || s.Status == StatusBlocked {
		return false
	}
	return s.CurrentPage > 1 && s.PrefixURL != ""
}

// Finished reports whether every page up to LastPage has been handled.
func (s *CrawlState) Finished() bool {
	return s.LastPage > 0 && s.CurrentPage > s.LastPage
}

// Record appends the records of CurrentPage. The page stays current until
// Next is called so the snapshot written in between is named after it.
func (s *CrawlState) Record(records []EmployeeRecord) {
	s.Collected = append(s.Collected, records...)
}

// Skip marks CurrentPage as unreadable.
func (s *CrawlState) Skip() {
	s.SkippedPages = append(s.SkippedPages, s.CurrentPage)
}

// Next moves to the following page.
func (s *CrawlState) Next() {
	s.CurrentPage++
}

// Clone returns a deep copy, used when the state is handed to the checkpoint.
func (s *CrawlState) Clone() *CrawlState {
	if s == nil {
		return nil
	}
	c := *s
	c.Collected = append([]EmployeeRecord(nil), s.Collected...)
	c.SkippedPages = append([]int(nil), s.SkippedPages...)
	return &c
}
