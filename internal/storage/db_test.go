package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
)

// testDB runs the shared test suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := db.Put([]byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		val, err := db.Get([]byte("key1"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("value1")) {
			t.Errorf("Get() = %q, want %q", val, "value1")
		}
	})

	t.Run("GetNonexistent", func(t *testing.T) {
		_, err := db.Get([]byte("nonexistent"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() missing key error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Has", func(t *testing.T) {
		db.Put([]byte("exists"), []byte("yes"))

		ok, err := db.Has([]byte("exists"))
		if err != nil {
			t.Fatalf("Has() error: %v", err)
		}
		if !ok {
			t.Error("Has() = false for existing key")
		}

		ok, err = db.Has([]byte("missing"))
		if err != nil {
			t.Fatalf("Has() error: %v", err)
		}
		if ok {
			t.Error("Has() = true for missing key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db.Put([]byte("del"), []byte("value"))
		if err := db.Delete([]byte("del")); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if ok, _ := db.Has([]byte("del")); ok {
			t.Error("key should be gone after Delete()")
		}
		if err := db.Delete([]byte("never-existed")); err != nil {
			t.Errorf("Delete() nonexistent key error: %v", err)
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		db.Put([]byte("prefix/c"), []byte("3"))
		db.Put([]byte("prefix/a"), []byte("1"))
		db.Put([]byte("prefix/b"), []byte("2"))
		db.Put([]byte("other/x"), []byte("4"))

		var keys []string
		err := db.ForEach([]byte("prefix/"), func(key, value []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error: %v", err)
		}
		want := []string{"prefix/a", "prefix/b", "prefix/c"}
		if len(keys) != len(want) {
			t.Fatalf("ForEach(prefix/) keys = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
			}
		}
	})

	t.Run("UpdateCommits", func(t *testing.T) {
		err := db.Update(func(kv KV) error {
			if err := kv.Put([]byte("tx/a"), []byte("1")); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes.
			got, err := kv.Get([]byte("tx/a"))
			if err != nil {
				return err
			}
			if string(got) != "1" {
				t.Errorf("in-txn Get = %q, want %q", got, "1")
			}
			return kv.Put([]byte("tx/b"), []byte("2"))
		})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		for _, k := range []string{"tx/a", "tx/b"} {
			if ok, _ := db.Has([]byte(k)); !ok {
				t.Errorf("%s missing after committed Update", k)
			}
		}
	})

	t.Run("UpdateRollsBack", func(t *testing.T) {
		db.Put([]byte("rb/keep"), []byte("old"))
		boom := errors.New("boom")
		err := db.Update(func(kv KV) error {
			kv.Put([]byte("rb/keep"), []byte("new"))
			kv.Put([]byte("rb/new"), []byte("x"))
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Update() error = %v, want boom", err)
		}
		got, _ := db.Get([]byte("rb/keep"))
		if string(got) != "old" {
			t.Errorf("rb/keep = %q after rollback, want %q", got, "old")
		}
		if ok, _ := db.Has([]byte("rb/new")); ok {
			t.Error("rb/new should not exist after rollback")
		}
	})

	t.Run("UpdateForEachSeesWrites", func(t *testing.T) {
		db.Put([]byte("fe/1"), []byte("a"))
		db.Put([]byte("fe/2"), []byte("b"))
		err := db.Update(func(kv KV) error {
			kv.Delete([]byte("fe/1"))
			kv.Put([]byte("fe/3"), []byte("c"))
			var keys []string
			if err := kv.ForEach([]byte("fe/"), func(key, _ []byte) error {
				keys = append(keys, string(key))
				return nil
			}); err != nil {
				return err
			}
			if len(keys) != 2 || keys[0] != "fe/2" || keys[1] != "fe/3" {
				t.Errorf("in-txn ForEach keys = %v, want [fe/2 fe/3]", keys)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
	})

	t.Run("UpdateConcurrentCounter", func(t *testing.T) {
		key := []byte("counter")
		const workers, rounds = 4, 25

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					err := db.Update(func(kv KV) error {
						var n uint64
						if v, err := kv.Get(key); err == nil {
							n = binary.BigEndian.Uint64(v)
						} else if !errors.Is(err, ErrNotFound) {
							return err
						}
						var buf [8]byte
						binary.BigEndian.PutUint64(buf[:], n+1)
						return kv.Put(key, buf[:])
					})
					if err != nil {
						t.Errorf("Update() error: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		v, err := db.Get(key)
		if err != nil {
			t.Fatalf("Get(counter) error: %v", err)
		}
		if got := binary.BigEndian.Uint64(v); got != workers*rounds {
			t.Errorf("counter = %d, want %d", got, workers*rounds)
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB_Persistence(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	db1.Put([]byte("persist"), []byte("data"))
	db1.Close()

	db2, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() reopen error: %v", err)
	}
	defer db2.Close()

	val, err := db2.Get([]byte("persist"))
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if !bytes.Equal(val, []byte("data")) {
		t.Errorf("persisted value = %q, want %q", val, "data")
	}
}

func TestMemoryDB_GetReturnsCopy(t *testing.T) {
	db := NewMemory()
	db.Put([]byte("k"), []byte("abc"))

	v, _ := db.Get([]byte("k"))
	v[0] = 'z'

	again, _ := db.Get([]byte("k"))
	if string(again) != "abc" {
		t.Errorf("stored value mutated through Get result: %q", again)
	}
}
