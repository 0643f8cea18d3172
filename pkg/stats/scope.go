package stats

import (
	"strconv"

	"github.com/disgoorg/snowflake/v2"
)

type scopeKind uint8

const (
	scopeGlobal scopeKind = iota + 1
	scopeUser
)

// Scope says who a counter is attributed to: a single member or the whole guild.
type Scope struct {
	kind   scopeKind
	userID snowflake.ID
}

// Global is the scope of guild-wide totals.
var Global = Scope{kind: scopeGlobal}

func User(id snowflake.ID) Scope {
	return Scope{kind: scopeUser, userID: id}
}

func (s Scope) IsGlobal() bool {
	return s.kind == scopeGlobal
}

// UserID returns the member id of a user scope. ok is false for Global.
func (s Scope) UserID() (id snowflake.ID, ok bool) {
	return s.userID, s.kind == scopeUser
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "user:" + strconv.FormatUint(uint64(s.userID), 10)
}

// EmojiKey identifies one emoji counter.
type EmojiKey struct {
	Scope Scope
	Emoji string
}
