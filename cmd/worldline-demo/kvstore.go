package main

import (
	"context"
	"math/rand"
	"sync"

	"github.com/worldline-dev/worldline"
	"github.com/worldline-dev/worldline/genarg"
)

// kvStore is the system under test: a trivially small in-memory map
// guarded by a mutex, with two optional flags that inject the bugs this
// demo is meant to catch.
type kvStore struct {
	mu        sync.Mutex
	data      map[string]int
	buggyPut  bool // Put silently writes value+1 instead of value
	racyInc   bool // Inc reads-then-writes without holding the lock across both
}

func newKVStore(buggyPut, racyInc bool) *kvStore {
	return &kvStore{data: make(map[string]int), buggyPut: buggyPut, racyInc: racyInc}
}

func (s *kvStore) Put(key string, val int) {
	if s.buggyPut {
		val++
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
}

func (s *kvStore) Get(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}

func (s *kvStore) Inc(key string) {
	if s.racyInc {
		s.mu.Lock()
		cur := s.data[key]
		s.mu.Unlock()

		s.mu.Lock()
		s.data[key] = cur + 1
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key]++
}

// demoCtx is the per-trial context: the fixed pool of keys every
// generated operation draws from.
type demoCtx struct {
	Keys []string
}

type kvModel = map[string]int

func cloneWithSet(model kvModel, key string, val int) kvModel {
	next := make(kvModel, len(model)+1)
	for k, v := range model {
		next[k] = v
	}
	next[key] = val
	return next
}

type putArgs struct {
	Key string
	Val int
}

type getArgs struct {
	Key string
}

type incArgs struct {
	Key string
}

func putArgsGen(ctx demoCtx) genarg.Generator[putArgs] {
	return genarg.New(func(r *rand.Rand, sz genarg.Size) (putArgs, genarg.Shrink[putArgs]) {
		key, _ := genarg.Elements(ctx.Keys...).Generate(r, sz)
		val, _ := genarg.IntRange(0, 100).Generate(r, sz)
		v := putArgs{Key: key, Val: val}
		return v, func(bool) (putArgs, bool) { return v, false }
	})
}

func getArgsGen(ctx demoCtx) genarg.Generator[getArgs] {
	return genarg.Map(genarg.Elements(ctx.Keys...), func(key string) getArgs { return getArgs{Key: key} })
}

func incArgsGen(ctx demoCtx) genarg.Generator[incArgs] {
	return genarg.Map(genarg.Elements(ctx.Keys...), func(key string) incArgs { return incArgs{Key: key} })
}

func putOp() worldline.OpGen[*kvStore, kvModel, demoCtx] {
	return worldline.DefineOp[*kvStore, kvModel, demoCtx, putArgs](
		"put",
		putArgsGen,
		func(ctx context.Context, sys *kvStore, args putArgs) worldline.Result {
			sys.Put(args.Key, args.Val)
			return worldline.Result{}
		},
		nil,
		func(args putArgs, model kvModel) kvModel {
			return cloneWithSet(model, args.Key, args.Val)
		},
	)
}

func getOp() worldline.OpGen[*kvStore, kvModel, demoCtx] {
	return worldline.DefineOp[*kvStore, kvModel, demoCtx, getArgs](
		"get",
		getArgsGen,
		func(ctx context.Context, sys *kvStore, args getArgs) worldline.Result {
			return worldline.Result{Value: sys.Get(args.Key)}
		},
		func(args getArgs, model kvModel, result worldline.Result, rec *worldline.Recorder) {
			rec.Equal(model[args.Key], result.Value, "get(%s)", args.Key)
		},
		nil,
	)
}

func incOp() worldline.OpGen[*kvStore, kvModel, demoCtx] {
	return worldline.DefineOp[*kvStore, kvModel, demoCtx, incArgs](
		"inc",
		incArgsGen,
		func(ctx context.Context, sys *kvStore, args incArgs) worldline.Result {
			sys.Inc(args.Key)
			return worldline.Result{}
		},
		nil,
		func(args incArgs, model kvModel) kvModel {
			return cloneWithSet(model, args.Key, model[args.Key]+1)
		},
	)
}
