package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/hitoshi/salonhub/internal/model"
)

// ErrTrackerClosed はClose後のTrackerを操作したことを示す。
var ErrTrackerClosed = errors.New("profile tracker closed")

// Source はTrackerが利用するプロフィールの取得・更新元。
type Source interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Update(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)
}

// State はTrackerが公開する状態。確定後にDataとErrが同時に設定されることはない。
type State struct {
	Data    *model.Profile
	Loading bool
	Err     error
}

// Tracker は1つのセッションについて「現在のユーザー」のプロフィール状態を保持する。
//
// Track/Updateのたびに世代番号を進め、結果は発行時の世代が現在の世代と一致する場合にのみ反映する。
// セッションが切り替わった後に古い取得結果が届いても状態は上書きされない。
type Tracker struct {
	source Source

	mu      sync.Mutex
	userID  string
	gen     uint64
	state   State
	cancel  context.CancelFunc
	settled chan struct{}
	done    bool // settledがclose済みか
	closed  bool

	wg sync.WaitGroup
}

// NewTracker はセッション無しの確定状態でTrackerを生成する。
func NewTracker(source Source) *Tracker {
	ch := make(chan struct{})
	close(ch)
	return &Tracker{
		source:  source,
		settled: ch,
		done:    true,
	}
}

// Track はuserIDのプロフィール取得を開始する。
// 空のuserIDは即座に{nil, false, nil}で確定する。進行中の取得はキャンセルされる。
func (t *Tracker) Track(ctx context.Context, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	gen := t.advanceLocked()
	t.userID = userID

	if userID == "" {
		t.state = State{}
		t.settleLocked()
		return
	}

	t.state = State{Loading: true}

	fetchCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		p, err := t.source.Get(fetchCtx, userID)
		t.apply(gen, p, err)
	}()
}

// Update は部分更新をストアへ送り、成功時はストアが返したレコードで状態を置き換える。
// 世代を進めるため、更新前に開始された取得の結果は破棄される。
func (t *Tracker) Update(ctx context.Context, update model.ProfileUpdate) (*model.Profile, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTrackerClosed
	}
	if t.userID == "" {
		t.mu.Unlock()
		return nil, ErrNoSession
	}
	gen := t.advanceLocked()
	userID := t.userID
	updateCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	p, err := t.source.Update(updateCtx, userID, update)
	if err != nil {
		t.mu.Lock()
		if gen == t.gen {
			t.state.Loading = false
			if t.state.Data == nil {
				t.state.Err = err
			}
			t.settleLocked()
		}
		t.mu.Unlock()
		return nil, err
	}

	t.apply(gen, p, nil)
	return p, nil
}

// Wait は現在の世代が確定するまで待機し、確定した状態を返す。
func (t *Tracker) Wait(ctx context.Context) (State, error) {
	for {
		t.mu.Lock()
		if t.done {
			s := t.state
			t.mu.Unlock()
			return s, nil
		}
		ch := t.settled
		t.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return t.State(), ctx.Err()
		}
	}
}

// State は現在の状態のスナップショットを返す。
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close は進行中の取得をキャンセルし、取得goroutineの終了を待つ。
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.state.Loading {
		t.state.Loading = false
	}
	t.settleLocked()
	t.mu.Unlock()

	t.wg.Wait()
}

// apply は世代が一致する場合のみ結果を状態に反映する。
func (t *Tracker) apply(gen uint64, p *model.Profile, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return
	}

	if err != nil {
		t.state = State{Err: err}
	} else {
		t.state = State{Data: p}
	}
	t.cancel = nil
	t.settleLocked()
}

// advanceLocked は進行中の処理をキャンセルして世代を進め、新しい待機チャネルを用意する。
func (t *Tracker) advanceLocked() uint64 {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	// 旧世代の待機者を起こす。待機者は新しい世代で待ち直す
	t.settleLocked()

	t.gen++
	t.settled = make(chan struct{})
	t.done = false
	return t.gen
}

func (t *Tracker) settleLocked() {
	if !t.done {
		close(t.settled)
		t.done = true
	}
}
