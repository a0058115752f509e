package cache

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestNop_AlwaysMisses(t *testing.T) {
	var c Cache = Nop{}
	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := c.Get(context.Background(), "k")
	if err != nil || ok || v != nil {
		t.Fatalf("Get = (%v, %v, %v); want miss", v, ok, err)
	}
}

func TestNew_WithoutAddrIsNop(t *testing.T) {
	if _, ok := New(context.Background(), RedisConfig{}).(Nop); !ok {
		t.Fatalf("expected Nop cache when no address is configured")
	}
}

func TestNew_UnreachableDegradesToNop(t *testing.T) {
	// Reserve a port then close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, ok := New(ctx, RedisConfig{Addr: addr}).(Nop); !ok {
		t.Fatalf("expected Nop cache for unreachable redis")
	}
}

func TestRedis_GetErrorsWhenUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	r := NewRedis(RedisConfig{Addr: addr, Prefix: "t:"})
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, ok, err := r.Get(ctx, "k"); err == nil || ok {
		t.Fatalf("expected error from unreachable redis, got ok=%v err=%v", ok, err)
	}
}
