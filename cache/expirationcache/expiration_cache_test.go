package expirationcache

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Expiration cache", func() {
	Describe("Basic operations", func() {
		When("cache was created", func() {
			It("starts empty", func() {
				cache := NewCache[string]()
				Expect(cache.TotalCount()).Should(Equal(0))
			})
			It("returns nil for unknown keys", func() {
				cache := NewCache[string]()
				val, ttl := cache.Get("key1")
				Expect(val).Should(BeNil())
				Expect(ttl).Should(Equal(time.Duration(0)))
			})
		})
		When("a value is put with positive TTL", func() {
			It("is retrievable before it expires", func() {
				cache := NewCache[string]()
				v := "v1"
				cache.Put("key1", &v, 50*time.Millisecond)

				val, ttl := cache.Get("key1")
				Expect(val).Should(HaveValue(Equal("v1")))
				Expect(ttl.Milliseconds()).Should(BeNumerically("<=", 50))
				Expect(cache.TotalCount()).Should(Equal(1))
			})
		})
		When("a value is put with zero TTL", func() {
			It("is not cached", func() {
				cache := NewCache[string]()
				v := "x"
				cache.Put("key1", &v, 0)

				val, _ := cache.Get("key1")
				Expect(val).Should(BeNil())
				Expect(cache.TotalCount()).Should(Equal(0))
			})
		})
		When("Remove is called", func() {
			It("evicts the entry immediately", func() {
				cache := NewCache[string]()
				v := "v1"
				cache.Put("key1", &v, time.Minute)
				Expect(cache.TotalCount()).Should(Equal(1))

				cache.Remove("key1")

				val, _ := cache.Get("key1")
				Expect(val).Should(BeNil())
				Expect(cache.TotalCount()).Should(Equal(0))
			})
		})
		When("Clear is called", func() {
			It("empties the cache", func() {
				cache := NewCache[string]()
				v := "y"
				cache.Put("key1", &v, time.Second)
				Expect(cache.TotalCount()).Should(Equal(1))

				cache.Clear()

				Expect(cache.TotalCount()).Should(Equal(0))
			})
		})
	})
	Describe("LRU behaviour", func() {
		When("max size is reached", func() {
			It("evicts the least recently used entry", func() {
				cache := NewCache[string](WithMaxSize[string](3))

				v1, v2, v3, v4 := "v1", "v2", "v3", "v4"
				cache.Put("key1", &v1, time.Second)
				cache.Put("key2", &v2, time.Second)
				cache.Put("key3", &v3, time.Second)
				cache.Put("key4", &v4, time.Second)

				Expect(cache.TotalCount()).Should(Equal(3))

				val, _ := cache.Get("key1")
				Expect(val).Should(BeNil())
			})
		})
	})
})
