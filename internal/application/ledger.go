package application

import "sync"

// CommentLedger remembers, per pull request, the head commit the last
// comment was posted for. It is process-local and best-effort.
type CommentLedger struct {
	mu     sync.Mutex
	posted map[string]string
}

// NewCommentLedger returns an empty ledger.
func NewCommentLedger() *CommentLedger {
	return &CommentLedger{posted: make(map[string]string)}
}

// Claim reserves the right to comment on key at headSHA. It returns false if
// a comment for that pair was already claimed.
func (l *CommentLedger) Claim(key, headSHA string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.posted[key] == headSHA {
		return false
	}
	l.posted[key] = headSHA
	return true
}

// Release drops a claim whose comment could not be posted, so a later
// attempt for the same commit may try again.
func (l *CommentLedger) Release(key, headSHA string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.posted[key] == headSHA {
		delete(l.posted, key)
	}
}
