// Package game owns the mutable quiz state: the phase machine, the per-round
// winner list, and the cumulative scoreboard. All mutation happens through
// Engine methods under a single mutex so that the chat bridge and the HTTP
// handlers never race on quorum evaluation or score updates.
package game

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/tunequiz/catalog"
	"github.com/onnwee/tunequiz/telemetry"
)

// Phase is the game lifecycle state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePlaying    Phase = "playing"
	PhaseRoundEnded Phase = "round_ended"
	PhaseFinished   Phase = "finished"
)

var (
	// ErrInvalidPhase is returned when an operation is called outside its
	// allowed phase. State is unchanged.
	ErrInvalidPhase = errors.New("operation not valid in current phase")
	// ErrEmptyCatalog is returned by Start when there are no songs to play.
	ErrEmptyCatalog = errors.New("song catalog is empty")
	// ErrNoCurrentSong is returned when no round is in flight.
	ErrNoCurrentSong = errors.New("no current song")
)

// Round-closure reasons, used in metrics labels and the audit trail.
const (
	CloseReasonQuorum  = "quorum"
	CloseReasonTimeout = "timeout"
	CloseReasonReveal  = "reveal"
)

// Winner is one correct answer in the current round, in arrival order.
type Winner struct {
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

// CheckResult is the outcome of an answer submission. Round identifies which
// round the result belongs to so callers sending delayed confirmations can
// detect staleness.
type CheckResult struct {
	Correct   bool
	Duplicate bool // username had already answered correctly this round
	Rank      int  // 1-based winner rank when Correct
	Points    int
	Round     int
	Title     string // primary title of the song this result is for
}

// PlayerScore is one scoreboard entry.
type PlayerScore struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Snapshot is a point-in-time view of the game for the boundary API.
type Snapshot struct {
	Phase        Phase `json:"phase"`
	Round        int   `json:"round"`
	CurrentIndex int   `json:"current_index"` // position in play order
	TotalSongs   int   `json:"total_songs"`
	PlayedCount  int   `json:"played_count"`
	ShowGenre    bool  `json:"show_genre"`
	ShowArtist   bool  `json:"show_artist"`
	ShowHint     bool  `json:"show_hint"`
	WinnerCount  int   `json:"winner_count"`
	PlayerCount  int   `json:"player_count"`
}

// AnswerEvent is emitted to the Recorder for every correct answer.
type AnswerEvent struct {
	Round      int
	SongID     int
	Username   string
	Submission string
	Rank       int
	Points     int
	At         time.Time
}

// RoundResult is emitted to the Recorder when a round closes.
type RoundResult struct {
	Round    int
	SongID   int
	Title    string
	Winners  []Winner
	Reason   string
	ClosedAt time.Time
}

// Recorder receives audit events. Implementations must tolerate being called
// from short-lived goroutines; the engine never waits on them and a slow or
// failing sink cannot roll back a committed score.
type Recorder interface {
	RecordAnswer(ctx context.Context, ev AnswerEvent)
	RecordRound(ctx context.Context, res RoundResult)
}

// Options tune the engine. Zero values select the defaults.
type Options struct {
	// Quorum is the winner count that force-closes a round. Default 3.
	Quorum int
	// CloseAfter closes the round this long after the first winner arrived,
	// even below quorum. Default 3s.
	CloseAfter time.Duration
	// Points awarded by winner rank (first, second, ...). Default 3,2,1.
	// Ranks beyond the slice get the last value.
	Points []int
	// Shuffle plays the catalog in a random permutation instead of file order.
	Shuffle bool
	// Recorder receives audit events; nil disables auditing.
	Recorder Recorder
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type playerScore struct {
	score int
	// seq of the last score change; breaks scoreboard ties in favor of
	// whoever reached the score first.
	seq uint64
}

// Engine is the single owner of game state. Construct with New; the zero
// value is not usable.
type Engine struct {
	mu    sync.Mutex
	songs *catalog.Catalog
	opts  Options
	now   func() time.Time

	phase   Phase
	round   int
	order   []int // play order, indexes into the catalog
	pos     int   // position in order
	winners []Winner
	scores  map[string]*playerScore
	seq     uint64

	showGenre  bool
	showArtist bool
	showHint   bool
}

// New creates an idle engine over the given catalog.
func New(songs *catalog.Catalog, opts Options) *Engine {
	if opts.Quorum <= 0 {
		opts.Quorum = 3
	}
	if opts.CloseAfter <= 0 {
		opts.CloseAfter = 3 * time.Second
	}
	if len(opts.Points) == 0 {
		opts.Points = []int{3, 2, 1}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		songs:  songs,
		opts:   opts,
		now:    now,
		phase:  PhaseIdle,
		scores: make(map[string]*playerScore),
	}
}

// Start begins a new game: play order rebuilt, scoreboard and round state
// cleared, phase Playing on song 0. Any previous game's state is discarded.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.songs.Len()
	if n == 0 {
		return ErrEmptyCatalog
	}
	e.order = make([]int, n)
	for i := range e.order {
		e.order[i] = i
	}
	if e.opts.Shuffle {
		rand.Shuffle(n, func(i, j int) { e.order[i], e.order[j] = e.order[j], e.order[i] })
	}
	e.pos = 0
	e.round++
	e.scores = make(map[string]*playerScore)
	e.seq = 0
	e.resetRoundLocked()
	e.phase = PhasePlaying
	return nil
}

// Next advances to the next song. Valid while Playing or RoundEnded; past the
// last song the game moves to Finished. Winners and reveal flags reset; the
// scoreboard carries over.
func (e *Engine) Next() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	if e.phase != PhasePlaying && e.phase != PhaseRoundEnded {
		return e.snapshotLocked(), ErrInvalidPhase
	}
	e.pos++
	e.round++
	e.resetRoundLocked()
	if e.pos >= len(e.order) {
		e.phase = PhaseFinished
	} else {
		e.phase = PhasePlaying
	}
	return e.snapshotLocked(), nil
}

// ShowHint reveals the hint for the current round. Monotone: already-revealed
// is a no-op. Requires an in-flight round.
func (e *Engine) ShowHint() error { return e.reveal(&e.showHint) }

// ShowGenre reveals the genre for the current round.
func (e *Engine) ShowGenre() error { return e.reveal(&e.showGenre) }

// ShowArtist reveals the artist for the current round.
func (e *Engine) ShowArtist() error { return e.reveal(&e.showArtist) }

func (e *Engine) reveal(flag *bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	if e.phase != PhasePlaying && e.phase != PhaseRoundEnded {
		return ErrInvalidPhase
	}
	*flag = true
	return nil
}

// CheckAnswer tests a submission against the current song. Duplicate
// submissions and submissions outside Playing are idempotent: they return the
// user's prior result for the round without touching state. A fresh match
// appends the user to the winners, awards rank-dependent points, and closes
// the round when quorum is reached.
func (e *Engine) CheckAnswer(username, text string) CheckResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	telemetry.CountAnswerChecked()

	res := CheckResult{Round: e.round}
	song, ok := e.currentSongLocked()
	if ok {
		res.Title = song.Title()
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return res
	}

	// Prior result first: a user already on the winner list gets the same
	// answer back even after the round closed.
	for i, w := range e.winners {
		if w.Username == username {
			res.Correct = true
			res.Duplicate = true
			res.Rank = i + 1
			res.Points = e.pointsForRank(i)
			return res
		}
	}
	if e.phase != PhasePlaying || !ok {
		return res
	}
	if !song.Matches(text) {
		return res
	}

	rank := len(e.winners)
	at := e.now()
	e.winners = append(e.winners, Winner{Username: username, At: at})
	pts := e.pointsForRank(rank)
	ps := e.scores[username]
	if ps == nil {
		ps = &playerScore{}
		e.scores[username] = ps
	}
	ps.score += pts
	e.seq++
	ps.seq = e.seq
	telemetry.CountAnswerCorrect()

	res.Correct = true
	res.Rank = rank + 1
	res.Points = pts

	if rec := e.opts.Recorder; rec != nil {
		ev := AnswerEvent{
			Round:      e.round,
			SongID:     song.ID,
			Username:   username,
			Submission: text,
			Rank:       res.Rank,
			Points:     pts,
			At:         at,
		}
		go rec.RecordAnswer(context.Background(), ev)
	}

	if len(e.winners) >= e.opts.Quorum {
		e.closeRoundLocked(CloseReasonQuorum)
	}
	return res
}

// Winner returns the current round's winner count and list in arrival order.
func (e *Engine) Winner() (int, []Winner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	out := make([]Winner, len(e.winners))
	copy(out, e.winners)
	return len(out), out
}

// Results returns the scoreboard sorted by score descending; ties go to
// whoever reached the score first.
func (e *Engine) Results() []PlayerScore {
	e.mu.Lock()
	defer e.mu.Unlock()
	type entry struct {
		name  string
		score int
		seq   uint64
	}
	entries := make([]entry, 0, len(e.scores))
	for name, ps := range e.scores {
		entries = append(entries, entry{name, ps.score, ps.seq})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]PlayerScore, len(entries))
	for i, en := range entries {
		out[i] = PlayerScore{Username: en.name, Score: en.score}
	}
	return out
}

// ResetScores clears the scoreboard and the current winner list without
// touching the phase or song position.
func (e *Engine) ResetScores() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scores = make(map[string]*playerScore)
	e.seq = 0
	e.winners = nil
}

// EndRound closes the current round explicitly (the operator moved to the
// answer reveal). Idempotent while RoundEnded.
func (e *Engine) EndRound() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	switch e.phase {
	case PhasePlaying:
		e.closeRoundLocked(CloseReasonReveal)
		return nil
	case PhaseRoundEnded:
		return nil
	default:
		return ErrInvalidPhase
	}
}

// CurrentSong returns the song for the in-flight round.
func (e *Engine) CurrentSong() (catalog.Song, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	song, ok := e.currentSongLocked()
	if !ok || (e.phase != PhasePlaying && e.phase != PhaseRoundEnded) {
		return catalog.Song{}, ErrNoCurrentSong
	}
	return song, nil
}

// Round reports the current round id and phase. The round id changes on every
// Start and Next, so a caller holding a CheckResult can detect that the result
// is stale.
func (e *Engine) Round() (int, Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	return e.round, e.phase
}

// State returns a snapshot for the boundary API.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	return e.snapshotLocked()
}

// ReplaceCatalog swaps the song catalog. Only allowed while no game is in
// flight, so an operator can load a different set between games.
func (e *Engine) ReplaceCatalog(songs *catalog.Catalog) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseIdle && e.phase != PhaseFinished {
		return ErrInvalidPhase
	}
	e.songs = songs
	e.order = nil
	e.pos = 0
	return nil
}

// Catalog returns the catalog currently in play.
func (e *Engine) Catalog() *catalog.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.songs
}

// Tick evaluates time-based round closure. The round watcher calls this so
// pollers observe RoundEnded promptly even when no answers arrive.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maybeCloseLocked()
	telemetry.SetPlayerCount(len(e.scores))
}

func (e *Engine) pointsForRank(rank int) int {
	if rank >= len(e.opts.Points) {
		rank = len(e.opts.Points) - 1
	}
	return e.opts.Points[rank]
}

func (e *Engine) resetRoundLocked() {
	e.winners = nil
	e.showGenre = false
	e.showArtist = false
	e.showHint = false
}

func (e *Engine) currentSongLocked() (catalog.Song, bool) {
	if e.phase == PhaseIdle || e.phase == PhaseFinished {
		return catalog.Song{}, false
	}
	if e.pos >= len(e.order) {
		return catalog.Song{}, false
	}
	return e.songs.Song(e.order[e.pos])
}

// maybeCloseLocked applies the time rule: the round closes CloseAfter past the
// first winner's timestamp. Evaluated at the head of every operation so the
// decision depends only on server state and the wall clock, never on a
// client's countdown.
func (e *Engine) maybeCloseLocked() {
	if e.phase != PhasePlaying || len(e.winners) == 0 {
		return
	}
	if e.now().Sub(e.winners[0].At) >= e.opts.CloseAfter {
		e.closeRoundLocked(CloseReasonTimeout)
	}
}

func (e *Engine) closeRoundLocked(reason string) {
	e.phase = PhaseRoundEnded
	telemetry.CountRoundClosed(reason)
	if rec := e.opts.Recorder; rec != nil {
		song, _ := e.currentSongLocked()
		res := RoundResult{
			Round:    e.round,
			SongID:   song.ID,
			Title:    song.Title(),
			Winners:  append([]Winner(nil), e.winners...),
			Reason:   reason,
			ClosedAt: e.now(),
		}
		go rec.RecordRound(context.Background(), res)
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:        e.phase,
		Round:        e.round,
		CurrentIndex: e.pos,
		TotalSongs:   e.songs.Len(),
		PlayedCount:  e.pos,
		ShowGenre:    e.showGenre,
		ShowArtist:   e.showArtist,
		ShowHint:     e.showHint,
		WinnerCount:  len(e.winners),
		PlayerCount:  len(e.scores),
	}
}
