package session

import "fmt"

// State 会话所处状态。加载阶段与提交阶段合并为一张状态表：
// READY 对应 {IDLE, SUBMITTING, RESOLVED} 三态之一。
type State string

const (
	StateLoading    State = "LOADING"     // 目录加载中
	StateLoadError  State = "LOAD_ERROR"  // 目录不可用，终态
	StateIdle       State = "IDLE"        // 就绪，无在途提交
	StateSubmitting State = "SUBMITTING"  // 一笔提交在途
	StateResolved   State = "RESOLVED"    // 最近一笔提交已有结果
)

// StateTransition 状态转换
type StateTransition struct {
	From State
	To   State
}

// StateMachine 会话状态机；转换表在构造时固定，之后只读。
type StateMachine struct {
	transitions map[StateTransition]bool
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StateTransition]bool),
	}
	legal := []StateTransition{
		// 加载只发生一次，成败各一条出边
		{StateLoading, StateIdle},
		{StateLoading, StateLoadError},

		// 提交生命周期
		{StateIdle, StateSubmitting},
		{StateSubmitting, StateResolved},
		{StateResolved, StateIdle},
		{StateResolved, StateSubmitting}, // 出结果后直接再次提交

		// LOAD_ERROR 是终态，没有出边
	}
	for _, t := range legal {
		sm.transitions[t] = true
	}
	return sm
}

// ValidateTransition 验证状态转换是否合法。
// 注意不允许 from == to：SUBMITTING -> SUBMITTING 正是要挡住的并发提交。
func (sm *StateMachine) ValidateTransition(from, to State) error {
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal 判断是否是终态
func (sm *StateMachine) IsTerminal(s State) bool {
	return s == StateLoadError
}

// IsReady 判断目录是否已就绪（加载成功后的任意状态）
func (sm *StateMachine) IsReady(s State) bool {
	switch s {
	case StateIdle, StateSubmitting, StateResolved:
		return true
	default:
		return false
	}
}

// CanSubmit 判断当前状态下能否发起新提交
func (sm *StateMachine) CanSubmit(s State) bool {
	return s == StateIdle || s == StateResolved
}
