package pool

import "testing"

func TestWaitQueue_FirstEnrollIsImmediate(t *testing.T) {
	wq := newWaitQueue()

	en1 := wq.enroll()
	if !en1.Immediate {
		t.Error("first enrollment should be Immediate")
	}

	en2 := wq.enroll()
	if en2.Immediate {
		t.Error("second enrollment should not be Immediate")
	}
	if wq.len() != 2 {
		t.Errorf("len() = %d, want 2", wq.len())
	}

	wq.withdraw(en1)
	wq.withdraw(en2)
	if wq.len() != 0 {
		t.Errorf("len() after withdrawing both = %d, want 0", wq.len())
	}
}

func TestWaitQueue_SignalHeadOnlyWakesFront(t *testing.T) {
	wq := newWaitQueue()

	en1 := wq.enroll()
	en2 := wq.enroll()

	wq.signalHead()

	select {
	case <-en1.Wake():
	default:
		t.Error("signalHead() did not wake the head entry")
	}

	select {
	case <-en2.Wake():
		t.Error("signalHead() woke the second entry too")
	default:
	}

	wq.withdraw(en1)
	wq.withdraw(en2)
}

func TestWaitQueue_SignalHeadIdempotent(t *testing.T) {
	wq := newWaitQueue()
	en := wq.enroll()

	wq.signalHead()
	wq.signalHead() // must not panic on a double close

	select {
	case <-en.Wake():
	default:
		t.Error("entry was not signaled")
	}
	wq.withdraw(en)
}

func TestWaitQueue_WithdrawIsIdempotent(t *testing.T) {
	wq := newWaitQueue()
	en := wq.enroll()

	wq.withdraw(en)
	wq.withdraw(en) // must not panic
	if wq.len() != 0 {
		t.Errorf("len() = %d, want 0", wq.len())
	}
}
