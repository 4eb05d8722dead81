package crawler

import (
	"strconv"
	"time"

	"github.com/mazen160/go-random"
)

// NewRunID returns a short random identifier for a crawl run.
func NewRunID() string {
	id, err := random.String(8)
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return id
}
