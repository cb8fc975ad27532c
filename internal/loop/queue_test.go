package loop_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/plife/internal/loop"
)

var _ = Describe("Queue", func() {
	It("drains in push order", func() {
		var q loop.Queue
		var got []int
		for i := 0; i < 300; i++ {
			i := i
			q.Push(func() { got = append(got, i) })
		}
		Expect(q.Len()).To(Equal(300))
		Expect(q.Drain()).To(Equal(300))
		Expect(q.Len()).To(BeZero())
		for i, v := range got {
			Expect(v).To(Equal(i))
		}
	})

	It("ignores nil", func() {
		var q loop.Queue
		q.Push(nil)
		Expect(q.Len()).To(BeZero())
		Expect(q.Drain()).To(BeZero())
	})

	It("runs pushes made during a drain after the current batch", func() {
		var q loop.Queue
		var got []string
		q.Push(func() {
			got = append(got, "a")
			q.Push(func() { got = append(got, "c") })
		})
		q.Push(func() { got = append(got, "b") })

		Expect(q.Drain()).To(Equal(3))
		Expect(got).To(Equal([]string{"a", "b", "c"}))
	})

	It("reuses its buffers across drains", func() {
		var q loop.Queue
		count := 0
		for round := 0; round < 5; round++ {
			for i := 0; i < 10; i++ {
				q.Push(func() { count++ })
			}
			Expect(q.Drain()).To(Equal(10))
		}
		Expect(count).To(Equal(50))
	})

	It("puts the rest of the batch back when a command panics", func() {
		var q loop.Queue
		var got []string
		q.Push(func() { got = append(got, "a") })
		q.Push(func() { panic("boom") })
		q.Push(func() { got = append(got, "b") })
		q.Push(func() { got = append(got, "c") })

		Expect(func() { q.Drain() }).To(PanicWith("boom"))
		Expect(got).To(Equal([]string{"a"}))
		Expect(q.Len()).To(Equal(2))

		q.Push(func() { got = append(got, "d") })
		Expect(q.Drain()).To(Equal(3))
		Expect(got).To(Equal([]string{"a", "b", "c", "d"}))
	})

	It("accepts concurrent producers", func() {
		var q loop.Queue
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					q.Push(func() {})
				}
			}()
		}
		wg.Wait()
		Expect(q.Drain()).To(Equal(800))
	})
})

var _ = Describe("Mailbox", func() {
	It("is empty initially", func() {
		var m loop.Mailbox
		Expect(m.Pending()).To(BeFalse())
		Expect(m.Take()).To(BeNil())
	})

	It("keeps only the latest item", func() {
		var m loop.Mailbox
		var got string
		Expect(m.Put(func() { got = "X" })).To(BeFalse())
		Expect(m.Put(func() { got = "Y" })).To(BeTrue())
		Expect(m.Pending()).To(BeTrue())

		fn := m.Take()
		Expect(fn).NotTo(BeNil())
		fn()
		Expect(got).To(Equal("Y"))
		Expect(m.Take()).To(BeNil())
	})

	It("ignores nil", func() {
		var m loop.Mailbox
		Expect(m.Put(nil)).To(BeFalse())
		Expect(m.Pending()).To(BeFalse())
	})
})
