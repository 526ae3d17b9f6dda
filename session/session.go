package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"margin-desk-go/catalog"
	"margin-desk-go/gateway"
	"margin-desk-go/infrastructure/logger"
	"margin-desk-go/margin"
	"margin-desk-go/metrics"
)

// Side 持仓方向。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// 协议里的两个结果状态。
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// NetworkErrorMessage 本地合成错误结果的固定文案；与服务端拒绝只能靠文案区分。
const NetworkErrorMessage = "network error connecting to backend"

// Draft 当前编辑中的订单参数；唯一实例由 Session 持有并独占写权限。
// 不变量：Asset 非 nil 时 Leverage 一定在 Asset.AllowedLeverage 里。
type Draft struct {
	Asset    *catalog.Asset
	Side     Side
	Size     float64 // 合约张数，>= 0
	Leverage int
}

// Outcome 一次提交的最终结果，整体替换、从不部分更新。
type Outcome struct {
	SubmissionID   string
	Status         string // ok / error
	Message        string
	MarginRequired float64
}

// Validator 提交通道抽象；生产实现为 gateway.Client。
type Validator interface {
	ValidateMargin(ctx context.Context, req gateway.ValidateRequest) (gateway.ValidateResponse, error)
}

var (
	ErrNotReady        = errors.New("session not ready")
	ErrAlreadyStarted  = errors.New("session already started")
	ErrLoadFailed      = errors.New("catalog load failed, session is terminal")
	ErrNoAssetSelected = errors.New("no asset selected")
	ErrUnknownAsset    = errors.New("unknown asset")
	ErrNegativeSize    = errors.New("order size must be >= 0")
	ErrZeroSize        = errors.New("order size must be > 0")
	ErrBadSide         = errors.New("side must be long or short")
	ErrSubmitInFlight  = errors.New("submission already in flight")
)

// Session 驱动整个交互流程：加载资产目录、维护订单草稿与保证金估算、
// 将估算提交给后端做权威确认。Session 是草稿和结果的唯一写入方；
// 所有读写都在同一把锁下，估算由显式管道在每次草稿变更时同步重算。
type Session struct {
	mu        sync.Mutex
	sm        *StateMachine
	state     State
	validator Validator

	catalog  *catalog.Catalog
	loadErr  error
	draft    Draft
	estimate float64
	outcome  *Outcome

	log        *logger.Logger
	stats      *metrics.Collector
	onResolved func(Outcome)
}

// New 构造处于 LOADING 状态的会话；Start 成功前所有操作都会被拒绝。
func New(v Validator) *Session {
	return &Session{
		sm:        NewStateMachine(),
		state:     StateLoading,
		validator: v,
		draft:     Draft{Side: SideLong},
	}
}

// SetLogger 注入结构化日志器；不设置则不打日志。
func (s *Session) SetLogger(l *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = l
}

// SetMetrics 注入指标收集器；不设置则不上报。
func (s *Session) SetMetrics(c *metrics.Collector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = c
}

// SetOutcomeListener 注册结果回调，在每次提交出结果后（锁外）调用。
func (s *Session) SetOutcomeListener(fn func(Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResolved = fn
}

// Start 加载资产目录，成功进入 IDLE，失败进入终态 LOAD_ERROR。
// 每个会话只加载一次；失败后没有降级模式，只能整体重启。
func (s *Session) Start(ctx context.Context, src catalog.Source) error {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	cat, err := catalog.Load(ctx, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		_ = s.transition(StateLoadError)
		s.loadErr = err
		if s.stats != nil {
			s.stats.CatalogLoadFailures.Inc()
		}
		if s.log != nil {
			s.log.LogError(err, map[string]interface{}{"event": "catalog_load_failed"})
		}
		return err
	}

	s.catalog = cat
	first := cat.First()
	s.draft.Asset = &first
	// 首次选择同样走回退策略，默认落在首个档位
	s.draft.Leverage = margin.ResolveLeverage(first, s.draft.Leverage)
	s.recompute()
	if s.log != nil {
		s.log.Info("catalog_loaded")
	}
	return s.transition(StateIdle)
}

// SelectAsset 切换选中资产并按新资产的档位表修正杠杆。
func (s *Session) SelectAsset(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	a, ok := s.catalog.Get(symbol)
	if !ok {
		return ErrUnknownAsset
	}
	s.draft.Asset = &a
	s.draft.Leverage = margin.ResolveLeverage(a, s.draft.Leverage)
	s.recompute()
	return nil
}

// SetSide 设置方向。
func (s *Session) SetSide(side Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	if side != SideLong && side != SideShort {
		return ErrBadSide
	}
	s.draft.Side = side
	s.recompute()
	return nil
}

// SetSize 设置张数；size = 0 合法（估算为 0，提交被禁用），负数拒绝。
func (s *Session) SetSize(size float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	if size < 0 {
		return ErrNegativeSize
	}
	s.draft.Size = size
	s.recompute()
	return nil
}

// SetLeverage 设置杠杆；非法档位直接走回退策略，保证不变量恒成立。
func (s *Session) SetLeverage(leverage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	if s.draft.Asset == nil {
		return ErrNoAssetSelected
	}
	s.draft.Leverage = margin.ResolveLeverage(*s.draft.Asset, leverage)
	s.recompute()
	return nil
}

// Submit 把当前估算提交给后端做权威校验，返回本次提交的 id。
// 请求载荷在调用时快照，之后的草稿编辑不影响在途请求；任意时刻至多一笔在途。
// 旧结果在请求发出前同步清空，提交期间查询不到任何结果。
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	if s.draft.Asset == nil {
		s.mu.Unlock()
		return "", ErrNoAssetSelected
	}
	if s.draft.Size <= 0 {
		s.mu.Unlock()
		return "", ErrZeroSize
	}

	req := gateway.ValidateRequest{
		Asset:        s.draft.Asset.Symbol,
		OrderSize:    s.draft.Size,
		Side:         string(s.draft.Side),
		Leverage:     s.draft.Leverage,
		MarginClient: s.estimate,
	}
	id := uuid.NewString()
	s.outcome = nil
	if err := s.transition(StateSubmitting); err != nil {
		s.mu.Unlock()
		return "", err
	}
	log := s.log
	s.mu.Unlock()

	if log != nil {
		log.LogSubmission("submit", id, map[string]interface{}{
			"asset":         req.Asset,
			"order_size":    req.OrderSize,
			"side":          req.Side,
			"leverage":      req.Leverage,
			"margin_client": req.MarginClient,
		})
	}
	go s.resolve(ctx, id, req)
	return id, nil
}

// resolve 执行一次校验往返并落盘结果。恰好一次请求，不重试。
func (s *Session) resolve(ctx context.Context, id string, req gateway.ValidateRequest) {
	start := time.Now()
	resp, err := s.validator.ValidateMargin(ctx, req)

	out := Outcome{SubmissionID: id}
	result := metrics.ResultOK
	if err != nil {
		// 传输失败或响应缺字段：本地合成固定错误结果，形状与服务端拒绝一致
		out.Status = StatusError
		out.Message = NetworkErrorMessage
		out.MarginRequired = 0
		result = metrics.ResultNetworkError
	} else {
		out.Status = resp.Status
		out.Message = resp.Message
		out.MarginRequired = resp.MarginRequired
		if resp.Status != StatusOK {
			result = metrics.ResultRejected
		}
	}

	s.mu.Lock()
	s.outcome = &out
	_ = s.transition(StateResolved)
	cb := s.onResolved
	log := s.log
	stats := s.stats
	s.mu.Unlock()

	if stats != nil {
		stats.ValidateLatency.Observe(time.Since(start).Seconds())
		stats.Submissions.WithLabelValues(result).Inc()
	}
	if log != nil {
		if err != nil {
			log.LogError(err, map[string]interface{}{"submission_id": id})
		}
		log.LogSubmission("resolved", id, map[string]interface{}{
			"status":          out.Status,
			"message":         out.Message,
			"margin_required": out.MarginRequired,
		})
	}
	if cb != nil {
		cb(out)
	}
}

// ClearOutcome 结果被前端消费后拨回 IDLE；提交在途时拒绝。
func (s *Session) ClearOutcome() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateResolved:
		s.outcome = nil
		return s.transition(StateIdle)
	default:
		return nil
	}
}

// State 返回当前状态。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft 返回草稿的拷贝。
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	if d.Asset != nil {
		a := *d.Asset
		d.Asset = &a
	}
	return d
}

// Estimate 返回与草稿同步重算出的当前估算值。
func (s *Session) Estimate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimate
}

// Outcome 返回最近一次提交的结果；提交在途或尚未提交时第二个返回值为 false。
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// Catalog 返回已加载的资产目录；LOAD_ERROR 或加载前为 nil。
func (s *Session) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// LoadError 返回目录加载失败的原因。
func (s *Session) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// recompute 显式重算管道：每个改动草稿的入口都必须在持锁时调用，
// 保证估算永远不落后于草稿。
func (s *Session) recompute() {
	s.estimate = margin.Estimate(s.draft.Asset, s.draft.Size, s.draft.Leverage)
	if s.stats != nil {
		s.stats.CurrentEstimate.Set(s.estimate)
	}
}

func (s *Session) ensureReady() error {
	if s.state == StateLoadError {
		return ErrLoadFailed
	}
	if !s.sm.IsReady(s.state) {
		return ErrNotReady
	}
	return nil
}

func (s *Session) transition(to State) error {
	if err := s.sm.ValidateTransition(s.state, to); err != nil {
		return err
	}
	s.state = to
	return nil
}
