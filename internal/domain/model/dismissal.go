package model

import "time"

// Dismissal records that the user suppressed notifications for one specific
// version. It never applies to any other version; a newer release always
// notifies again.
type Dismissal struct {
	Version     Version
	DismissedAt time.Time // time of the most recent dismissal
	CheckCount  int       // how many times this version was dismissed
}
