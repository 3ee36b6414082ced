package simulation

/*
Файл controller.go — плейбек демо как явный конечный автомат:

	idle(day=1) -> playing -> {paused | completed(day=Days)}

Состояние описано одним значением State, переходы — чистые функции-редьюсеры
(Play/Pause/Scrub/Tick/Reset). Реального таймера внутри нет: источник тиков
инжектируется снаружи (Run), поэтому автомат проверяется тестами без часов.
*/

import (
	"context"
	"sync"
	"time"
)

// State — полное состояние плейбека. Значение, а не указатель:
// каждый переход возвращает новую копию.
type State struct {
	Day     int
	Playing bool

	// Dismissed — скрытые пользователем карточки-предложения, ключ = день
	// вехи. Не переживает Reset.
	Dismissed map[int]struct{}
}

// NewState — исходное состояние: день 1, пауза, ничего не скрыто.
func NewState() State {
	return State{Day: 1, Dismissed: map[int]struct{}{}}
}

func (s State) clone() State {
	d := make(map[int]struct{}, len(s.Dismissed))
	for k := range s.Dismissed {
		d[k] = struct{}{}
	}
	s.Dismissed = d
	return s
}

// Play запускает воспроизведение. Из completed выход только через Reset,
// поэтому на последнем дне Play — no-op.
func (s State) Play(lastDay int) State {
	s = s.clone()
	if s.Day >= lastDay {
		return s
	}
	s.Playing = true
	return s
}

func (s State) Pause() State {
	s = s.clone()
	s.Playing = false
	return s
}

// Scrub — ручная перемотка слайдером: ставит день напрямую (с зажимом
// в границы) и останавливает воспроизведение.
func (s State) Scrub(day, lastDay int) State {
	s = s.clone()
	if day < 1 {
		day = 1
	}
	if day > lastDay {
		day = lastDay
	}
	s.Day = day
	s.Playing = false
	return s
}

// Tick — один шаг таймера. Достижение последнего дня само останавливает
// воспроизведение (completed).
func (s State) Tick(lastDay int) State {
	if !s.Playing {
		return s
	}
	s = s.clone()
	s.Day++
	if s.Day >= lastDay {
		s.Day = lastDay
		s.Playing = false
	}
	return s
}

// Dismiss скрывает карточку-предложение дня вехи.
func (s State) Dismiss(day int) State {
	s = s.clone()
	s.Dismissed[day] = struct{}{}
	return s
}

// Reset — единственный выход из completed: день 1, пауза, скрытия очищены.
func (s State) Reset() State {
	return NewState()
}

// Controller владеет состоянием плейбека и прогоняет редьюсеры по тикам
// внешнего источника. Мьютекс нужен потому, что тики и действия
// пользователя приходят из разных горутин.
type Controller struct {
	mu     sync.RWMutex
	script Script
	state  State
}

func NewController(script Script) *Controller {
	return &Controller{script: script, state: NewState()}
}

// Snapshot возвращает состояние дня для отдачи наружу: DayState плюс
// фильтрация скрытой карточки.
func (c *Controller) Snapshot() DayState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ds := BuildDayState(c.script, c.state.Day)
	if ds.Proposal != nil {
		if _, hidden := c.state.Dismissed[ds.Proposal.Day]; hidden {
			ds.Proposal = nil
		}
	}
	return ds
}

func (c *Controller) Play()  { c.apply(func(s State) State { return s.Play(c.script.Days) }) }
func (c *Controller) Pause() { c.apply(State.Pause) }
func (c *Controller) Reset() { c.apply(State.Reset) }

func (c *Controller) Dismiss(day int) { c.apply(func(s State) State { return s.Dismiss(day) }) }
func (c *Controller) Scrub(day int)   { c.apply(func(s State) State { return s.Scrub(day, c.script.Days) }) }

func (c *Controller) apply(fn func(State) State) {
	c.mu.Lock()
	c.state = fn(c.state)
	c.mu.Unlock()
}

// Run крутит автомат по внешнему источнику тиков до отмены контекста.
// Канал вместо time.Ticker позволяет тестам прогонять плейбек мгновенно;
// боевой вызов передает time.NewTicker(200 * time.Millisecond).C.
func (c *Controller) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			c.apply(func(s State) State { return s.Tick(c.script.Days) })
		}
	}
}
