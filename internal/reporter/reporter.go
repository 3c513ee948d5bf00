package reporter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"go-kuensel-scraper/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	footer         = "\n\n<i>Kuensel Facebook Scraper</i>"
	maxListedPosts = 5
	maxTitleRunes  = 120
)

// Sender delivers one formatted message. telegram.Bot implements it.
type Sender interface {
	Send(text string) error
}

// Reporter formats run notifications. With a nil sender messages are only
// logged.
type Reporter struct {
	sender Sender
	now    func() time.Time
}

func New(sender Sender) *Reporter {
	return &Reporter{sender: sender, now: time.Now}
}

// SetClock overrides the timestamp source.
func (r *Reporter) SetClock(now func() time.Time) {
	r.now = now
}

func (r *Reporter) send(text string) error {
	if r.sender == nil {
		log.WithField("notifier", "log").Info(text)
		return nil
	}
	if err := r.sender.Send(text); err != nil {
		log.Warnf("⚠️ Failed to send notification: %v", err)
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (r *Reporter) stamp() string {
	return r.now().Format("2006-01-02 15:04:05")
}

// NewPosts lists the first few fresh posts. Nothing is sent for an empty batch.
func (r *Reporter) NewPosts(posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🆕 <b>Kuensel: %d New Post(s) Found</b>\n", len(posts))
	fmt.Fprintf(&b, "Detected at %s\n", r.stamp())
	for i, p := range posts {
		if i == maxListedPosts {
			fmt.Fprintf(&b, "\n…and %d more", len(posts)-maxListedPosts)
			break
		}
		b.WriteString("\n")
		title := truncate(p.Title, maxTitleRunes)
		if len(p.Attachment.Links) > 0 {
			fmt.Fprintf(&b, "• <a href=\"%s\">%s</a>", html.EscapeString(p.Attachment.Links[0]), html.EscapeString(title))
		} else {
			fmt.Fprintf(&b, "• %s", html.EscapeString(title))
		}
		if p.Category != "" {
			fmt.Fprintf(&b, " <i>[%s]</i>", html.EscapeString(p.Category))
		}
	}
	b.WriteString(footer)
	return r.send(b.String())
}

// Completed reports the end of a scrape run.
func (r *Reporter) Completed(totalPosts, newPosts int) error {
	text := fmt.Sprintf("✅ <b>Kuensel: Scraper Completed Successfully</b>\n"+
		"Finished at %s\n\n"+
		"📊 Total posts in archive: %d\n"+
		"🆕 New this run: %d\n"+
		"🔄 Static API files updated",
		r.stamp(), totalPosts, newPosts)
	return r.send(text + footer)
}

func (r *Reporter) Failed(err error) error {
	reason := "Unknown error"
	if err != nil {
		reason = err.Error()
	}
	text := fmt.Sprintf("❌ <b>Kuensel: Scraper Failed</b>\n"+
		"Failed at %s\n\n"+
		"Errors encountered: %s\n"+
		"🔧 Manual intervention may be required",
		r.stamp(), html.EscapeString(reason))
	return r.send(text + footer)
}

func (r *Reporter) Recovery(recovered, totalPosts, daysBack int) error {
	text := fmt.Sprintf("🔎 <b>Kuensel: Historical Recovery Finished</b>\n"+
		"Finished at %s\n\n"+
		"📅 Window: last %d day(s)\n"+
		"♻️ Recovered posts: %d\n"+
		"📊 Total posts in archive: %d",
		r.stamp(), daysBack, recovered, totalPosts)
	return r.send(text + footer)
}

// DailySummary aggregates the runs of one day.
func (r *Reporter) DailySummary(runs []models.Run, totalPosts int) error {
	var completed, failed, skipped, newPosts int
	for _, run := range runs {
		switch run.Status {
		case models.RunCompleted:
			completed++
		case models.RunFailed:
			failed++
		case models.RunSkipped:
			skipped++
		}
		newPosts += run.NewPosts
	}

	text := fmt.Sprintf("📋 <b>Kuensel: Daily Summary</b>\n"+
		"%s\n\n"+
		"🔁 Runs: %d (✅ %d, ❌ %d, ⏭️ %d)\n"+
		"🆕 New posts today: %d\n"+
		"📊 Total posts in archive: %d",
		r.now().Format("2006-01-02"), len(runs), completed, failed, skipped, newPosts, totalPosts)
	return r.send(text + footer)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
