package room

// NoticeLevel grades a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible notification: a short title and a one-paragraph
// body. Moderation events (kicked, censored) and boundary errors all surface
// through this shape instead of propagating as raw errors.
type Notice struct {
	Level NoticeLevel
	Title string
	Body  string
}

// Notifier receives notices from the session. Implementations must be fast;
// they are invoked from the session's dispatcher goroutine.
type Notifier interface {
	Notify(n Notice)
}

// NopNotifier drops all notices.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Notice) {}
