package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects every value a model broadcasts.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) Accept(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func TestValue_DefaultWhenEmpty(t *testing.T) {
	m := NewEmpty("fallback")

	assert.False(t, m.IsValid())
	assert.Equal(t, "fallback", m.Data())

	assert.True(t, m.SetData("x"))
	assert.True(t, m.IsValid())
	assert.Equal(t, "x", m.Data())

	m.Clear()
	assert.False(t, m.IsValid())
	assert.Equal(t, "fallback", m.Data())
}

func TestValue_SetDataIsIdempotent(t *testing.T) {
	models := []Model[int]{NewInteger(3), NewEmpty(7), NewValidated(-1, NotNegative)}
	for _, m := range models {
		rec := &recorder[int]{}
		m.AddListener(rec)

		assert.False(t, m.SetData(m.Data()), "writing the current value must be a no-op")
		assert.Equal(t, 0, rec.count())
	}
}

func TestValue_NotifiesOncePerWrite(t *testing.T) {
	m := NewString("a")
	rec := &recorder[string]{}
	m.AddListener(rec)
	m.AddListener(rec)

	assert.True(t, m.SetData("b"))
	assert.Equal(t, []string{"b"}, rec.all(), "duplicate registration must not double-notify")

	m.RemoveListener(rec)
	m.RemoveListener(rec)
	m.RemoveListener(NewListener(func(string) {}))
	m.SetData("c")
	assert.Equal(t, []string{"b"}, rec.all())
}

func TestValue_NotifyListenersRebroadcasts(t *testing.T) {
	m := NewBoolean(true)
	rec := &recorder[bool]{}
	m.AddListener(rec)

	m.NotifyListeners()
	assert.Equal(t, []bool{true}, rec.all())
}

func TestListener_ReentrantWriteFromListener(t *testing.T) {
	a := NewInteger(0)
	b := NewInteger(0)
	a.AddListener(NewListener(func(v int) { b.SetData(v * 10) }))
	b.AddListener(NewListener(func(v int) { a.SetData(v / 10) }))

	assert.True(t, a.SetData(4))
	assert.Equal(t, 4, a.Data())
	assert.Equal(t, 40, b.Data())
}

func TestListener_RemoveSelfDuringFanOut(t *testing.T) {
	m := NewInteger(0)
	calls := 0
	var self *FuncListener[int]
	self = NewListener(func(int) {
		calls++
		m.RemoveListener(self)
	})
	m.AddListener(self)

	m.SetData(1)
	m.SetData(2)
	assert.Equal(t, 1, calls)
}

func TestReadOnly(t *testing.T) {
	m := NewReadOnly("fixed")
	assert.True(t, m.IsValid())
	assert.False(t, m.SetData("other"))
	assert.Equal(t, "fixed", m.Data())

	rec := &recorder[string]{}
	m.AddListener(rec)
	assert.True(t, m.Publish("pushed"))
	assert.False(t, m.Publish("pushed"))
	assert.Equal(t, []string{"pushed"}, rec.all())
}

func TestReadOnly_ConcurrentPublishNotifiesOnce(t *testing.T) {
	m := NewReadOnly(0)
	rec := &recorder[int]{}
	m.AddListener(rec)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Publish(7)
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{7}, rec.all())
}

func TestReadOnly_PublishOverComputed(t *testing.T) {
	m := NewComputed(func() int { return 3 }, 0)
	assert.False(t, m.Publish(3), "same as the computed value")
	assert.True(t, m.Publish(4))
	assert.Equal(t, 4, m.Data())
}

func TestComputed(t *testing.T) {
	source := NewInteger(2)
	sq := NewComputed(func() int { return source.Data() * source.Data() }, 0)
	source.AddListener(NewListener(func(int) { sq.NotifyListeners() }))

	rec := &recorder[int]{}
	sq.AddListener(rec)

	assert.Equal(t, 4, sq.Data())
	source.SetData(3)
	assert.Equal(t, 9, sq.Data())
	assert.Equal(t, []int{9}, rec.all())
}

func TestCascading_InheritsUntilFirstWrite(t *testing.T) {
	base := NewString("base")
	c := NewCascading[string](base, nil)
	rec := &recorder[string]{}
	c.AddListener(rec)

	assert.Equal(t, "base", c.Data())
	base.SetData("base-2")
	assert.Equal(t, "base-2", c.Data())
	assert.False(t, c.Forked())

	require.True(t, c.SetData("local"))
	assert.True(t, c.Forked())
	assert.Equal(t, "local", c.Data())

	base.SetData("base-3")
	assert.Equal(t, "local", c.Data(), "base changes must not leak after the fork")

	assert.Equal(t, []string{"base-2", "local"}, rec.all())
}

func TestCascading_ForksOnce(t *testing.T) {
	base := NewInteger(1)
	forks := 0
	c := NewCascading[int](base, func(v int) Model[int] {
		forks++
		return NewInteger(v)
	})

	c.SetData(2)
	c.SetData(3)
	c.SetData(4)
	assert.Equal(t, 1, forks)
	assert.Equal(t, 4, c.Data())
	assert.Equal(t, 1, base.Data(), "base is never written through")
}

func TestCascading_WriteOfInheritedValueDoesNotFork(t *testing.T) {
	base := NewInteger(5)
	c := NewCascading[int](base, nil)

	assert.False(t, c.SetData(5))
	assert.False(t, c.Forked())
}

func TestCascading_DetachedFromBaseAfterFork(t *testing.T) {
	base := NewInteger(1)
	c := NewCascading[int](base, nil)
	c.SetData(2)

	assert.Equal(t, 0, base.listeners.len())
	c.Detach()
}

func TestConjunction(t *testing.T) {
	a, b := NewBoolean(true), NewBoolean(true)
	c := NewConjunction(a, b)
	not := c.Invert()

	rec := &recorder[bool]{}
	c.AddListener(rec)
	inv := &recorder[bool]{}
	not.AddListener(inv)

	assert.True(t, c.Data())
	assert.False(t, not.Data())
	assert.False(t, c.SetData(false))
	assert.False(t, not.SetData(true))

	b.SetData(false)
	assert.False(t, c.Data())
	assert.True(t, not.Data())
	assert.Equal(t, []bool{false}, rec.all())
	assert.Equal(t, []bool{true}, inv.all())

	c.Detach()
	b.SetData(true)
	assert.Len(t, rec.all(), 1)
	assert.True(t, NewConjunction().Data())
}

func TestConjunction_ValidityFollowsChildren(t *testing.T) {
	v := NewValidated(-1, NotNegative)
	flag := NewValidFlag[int](v)
	c := NewConjunction(NewBoolean(true), flag)

	assert.True(t, c.IsValid())
	assert.False(t, c.Data())
	v.SetData(1)
	assert.True(t, c.Data())
}

func TestInvert_DefaultMatchesInvalidBase(t *testing.T) {
	base := NewEmpty(false)
	not := NewInvert(base)
	assert.False(t, not.IsValid())
	assert.Equal(t, not.Default(), not.Data())
}

func TestValidFlag(t *testing.T) {
	email := NewEmail("nope")
	flag := NewValidFlag[string](email)
	rec := &recorder[bool]{}
	flag.AddListener(rec)

	assert.True(t, flag.IsValid())
	assert.False(t, flag.Default())
	assert.False(t, flag.Data())

	email.SetData("user@example.com")
	assert.True(t, flag.Data())
	assert.Equal(t, []bool{true}, rec.all())

	flag.Detach()
	email.SetData("broken")
	assert.Len(t, rec.all(), 1)
}

func TestValidFlag_NotifiesOnlyOnFlip(t *testing.T) {
	name := NewNotEmpty("")
	flag := NewValidFlag[string](name)
	rec := &recorder[bool]{}
	flag.AddListener(rec)

	name.SetData("A")
	name.SetData("Ad")
	name.SetData("Ada")
	name.SetData("")
	assert.Equal(t, []bool{true, false}, rec.all())
}

func TestIntegerString_LateBaseDeliveryKeepsLatest(t *testing.T) {
	base := NewInteger(1)
	a := NewIntegerString(base)
	rec := &recorder[string]{}
	a.AddListener(rec)

	base.SetData(6)
	a.forwarder.Accept(5)
	assert.Equal(t, "6", a.Data())
	assert.Equal(t, []string{"6"}, rec.all())
}

func TestIntegerString_ParseSuccessWritesThrough(t *testing.T) {
	base := NewInteger(1)
	a := NewIntegerString(base)
	rec := &recorder[string]{}
	a.AddListener(rec)

	assert.Equal(t, "1", a.Data())
	assert.True(t, a.SetData("42"))
	assert.True(t, a.IsValid())
	assert.Equal(t, 42, base.Data())
	assert.Equal(t, 42, a.Value())
	assert.Equal(t, []string{"42"}, rec.all())
}

func TestIntegerString_ParseFailureKeepsDisplay(t *testing.T) {
	base := NewValue(7, -1)
	a := NewIntegerString(base)
	flag := NewValidFlag[string](a)
	flags := &recorder[bool]{}
	flag.AddListener(flags)

	assert.False(t, a.SetData("12x"))
	assert.False(t, a.IsValid())
	assert.Equal(t, "12x", a.Data(), "unparsed text stays displayed")
	assert.Equal(t, 7, base.Data(), "base stays untouched")
	assert.Equal(t, -1, a.Value(), "typed side falls back to the base default")
	assert.Equal(t, []bool{false}, flags.all(), "validity flip is observable")

	assert.True(t, a.SetData("8"))
	assert.True(t, a.IsValid())
	assert.Equal(t, 8, base.Data())
	assert.Equal(t, []bool{false, true}, flags.all())
}

func TestIntegerString_FollowsBase(t *testing.T) {
	base := NewInteger(1)
	a := NewIntegerString(base)
	a.SetData("oops")

	base.SetData(5)
	assert.Equal(t, "5", a.Data())
	assert.True(t, a.IsValid())

	a.Detach()
	base.SetData(6)
	assert.Equal(t, "5", a.Data())
}

func TestRealString(t *testing.T) {
	base := NewReal(1.5)
	a := NewRealString(base)

	assert.Equal(t, "1.5", a.Data())
	assert.True(t, a.SetData("2.25"))
	assert.InDelta(t, 2.25, base.Data(), 1e-9)

	assert.False(t, a.SetData("two"))
	assert.False(t, a.IsValid())
	assert.Equal(t, float64(0), a.Value())
	assert.Equal(t, "0", a.Default())
}

func TestValidated_WritesNeverRejected(t *testing.T) {
	m := NewValidated(5, Positive)
	assert.True(t, m.IsValid())

	assert.True(t, m.SetData(-3))
	assert.False(t, m.IsValid())
	assert.Equal(t, -3, m.Data())
}

func TestCriteria(t *testing.T) {
	assert.True(t, NotNegative(0))
	assert.False(t, NotNegative(-1))
	assert.False(t, Positive(0))
	assert.True(t, Positive(1))
	assert.False(t, NotEmpty("   "))
	assert.True(t, NotEmpty(" a "))
	assert.True(t, Email("first.last+tag@sub.example.org"))
	assert.False(t, Email("first.last@localhost"))
	assert.False(t, Email("@example.com"))
	assert.True(t, NewNotEmpty("x").IsValid())
}

func TestSynchronized_ReentrantSetDataFromListener(t *testing.T) {
	s := NewSynchronized[int](NewInteger(0))
	s.AddListener(NewListener(func(v int) {
		if v < 5 {
			s.SetData(v + 1)
		}
	}))

	assert.True(t, s.SetData(1))
	assert.Equal(t, 5, s.Data())
}

func TestSynchronized_ConcurrentWrites(t *testing.T) {
	s := NewSynchronized[int](NewInteger(0))
	rec := &recorder[int]{}
	s.AddListener(rec)

	var wg sync.WaitGroup
	for g := 1; g <= 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.SetData(g*1000 + i)
				_ = s.Data()
				_ = s.IsValid()
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 800, rec.count())
}

func TestSynchronized_UpdateIsAtomic(t *testing.T) {
	s := NewSynchronized[int](NewInteger(0))
	rec := &recorder[int]{}
	s.AddListener(rec)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Update(func(n int) int { return n + 1 })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, s.Data())
	assert.Equal(t, 400, rec.count())
}

func TestSynchronized_SetBase(t *testing.T) {
	first := NewString("one")
	second := NewString("two")
	s := NewSynchronized[string](first)
	rec := &recorder[string]{}
	s.AddListener(rec)

	s.SetBase(second)
	assert.Equal(t, "two", s.Data())
	assert.Equal(t, Model[string](second), s.Base())

	first.SetData("ignored")
	second.SetData("three")
	assert.Equal(t, []string{"two", "three"}, rec.all())

	s.SetBase(second)
	assert.Len(t, rec.all(), 2)
}

func TestBinding(t *testing.T) {
	a := NewString("a")
	b := NewString("b")
	rec := &recorder[string]{}

	bind := NewBinding[string](a, rec)
	assert.Equal(t, []string{"a"}, rec.all())

	a.SetData("a2")
	bind.SetModel(b)
	a.SetData("a3")
	b.SetData("b2")
	assert.Equal(t, []string{"a", "a2", "b", "b2"}, rec.all())

	bind.Unbind()
	b.SetData("b3")
	assert.Len(t, rec.all(), 4)
	assert.Equal(t, Model[string](b), bind.Model(), "the model stays readable after Unbind")

	bind.SetModel(a)
	a.SetData("a4")
	assert.Len(t, rec.all(), 4)
}
