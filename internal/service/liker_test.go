package service

import (
	"testing"
	"time"

	"squad-tracker/internal/api"
	"squad-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
)

func post(id string, at time.Time) api.SocialPost {
	return api.SocialPost{ID: id, CreatedAt: at}
}

func TestPageReaches(t *testing.T) {
	base := time.UnixMilli(100000)
	known := domain.PostCursor{ID: "p5", Timestamp: base.UnixMilli()}

	t.Run("known post on page", func(t *testing.T) {
		page := []api.SocialPost{
			post("p7", base.Add(2*time.Minute)),
			post("p5", base),
		}
		assert.True(t, pageReaches(page, known))
	})

	t.Run("page passed the known timestamp", func(t *testing.T) {
		// The known post was deleted; an older post proves the gap is covered.
		page := []api.SocialPost{
			post("p6", base.Add(time.Minute)),
			post("p4", base.Add(-time.Minute)),
		}
		assert.True(t, pageReaches(page, known))
	})

	t.Run("only newer posts", func(t *testing.T) {
		page := []api.SocialPost{
			post("p9", base.Add(3*time.Minute)),
			post("p8", base.Add(2*time.Minute)),
		}
		assert.False(t, pageReaches(page, known))
	})

	t.Run("empty page", func(t *testing.T) {
		assert.False(t, pageReaches(nil, known))
	})
}
