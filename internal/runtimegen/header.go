// Package runtimegen implements the fixed C runtime text every emitted
// program is linked against — the Obj representation, allocator,
// shape-specialized freers, reference counting, the weak reference
// table, Tarjan SCC builder for cycle collection, and the
// deferred-decrement batcher with its safe points.
package runtimegen

import "strings"

// Header returns the complete runtime preamble. It never varies with
// the program being compiled — every emitted C file starts with it
// verbatim — so it is kept as one fixed string rather than built
// through internal/emit's CodeExpr, which exists for program-specific
// fragments, not this static boilerplate.
func Header() string {
	return strings.TrimLeft(runtimeSource, "\n")
}

const runtimeSource = `
#include <stdlib.h>
#include <stdint.h>
#include <string.h>
#include <stdio.h>

/* Obj is the single boxed representation every emitted value is
 * stored behind. The layout is deliberately fixed across shapes: a
 * TREE-shaped pair and a CYCLIC-shaped one are byte-identical, only
 * the freeing strategy picked by the shape lattice differs. */
typedef struct Obj {
  int mark;
  int scc_id;
  int is_pair;
  unsigned int scan_tag;
  union {
    long long i;
    struct { struct Obj *car, *cdr; } pair;
    const char *sym;
  } u;
  int rc;
} Obj;

#define STACK_POOL_SIZE 4096
static Obj *free_list = NULL;
static Obj stack_pool[STACK_POOL_SIZE];
static int stack_pool_next = 0;

static Obj *alloc_obj(void) {
  if (free_list != NULL) {
    Obj *o = free_list;
    free_list = o->u.pair.cdr;
    return o;
  }
  if (stack_pool_next < STACK_POOL_SIZE) {
    return &stack_pool[stack_pool_next++];
  }
  return (Obj *)malloc(sizeof(Obj));
}

/* in_stack_pool reports whether o came from the static pool (and so
 * must never be passed to free()); compares by uintptr_t range, not
 * pointer arithmetic, to stay defined behavior across the pool's
 * bounds. */
static int in_stack_pool(Obj *o) {
  uintptr_t p = (uintptr_t)o;
  uintptr_t lo = (uintptr_t)&stack_pool[0];
  uintptr_t hi = (uintptr_t)&stack_pool[STACK_POOL_SIZE];
  return p >= lo && p < hi;
}

static void release_obj(Obj *o) {
  o->u.pair.cdr = free_list;
  free_list = o;
}

Obj *mk_int(long long i) {
  Obj *o = alloc_obj();
  o->is_pair = 0; o->mark = 0; o->scc_id = -1; o->scan_tag = 0; o->rc = 1;
  o->u.i = i;
  return o;
}

Obj *mk_sym(const char *s) {
  Obj *o = alloc_obj();
  o->is_pair = 0; o->mark = 0; o->scc_id = -1; o->scan_tag = 1; o->rc = 1;
  o->u.sym = s;
  return o;
}

Obj *mk_pair(Obj *car, Obj *cdr) {
  Obj *o = alloc_obj();
  o->is_pair = 1; o->mark = 0; o->scc_id = -1; o->scan_tag = 2; o->rc = 1;
  o->u.pair.car = car;
  o->u.pair.cdr = cdr;
  return o;
}

Obj *NIL_obj = NULL;
#define NIL (nil_singleton())
static Obj *nil_singleton(void) {
  if (NIL_obj == NULL) {
    NIL_obj = mk_int(0);
    NIL_obj->scan_tag = 3;
  }
  return NIL_obj;
}

void inc_ref(Obj *o) {
  if (o == NULL) return;
  o->rc++;
}

/* --- primitive operators ---
 * The call sites residualized by applyPrim (internal/eval) invoke
 * these whenever an operand isn't known until run time; a fully
 * compile-time-known application never reaches C at all. */
Obj *add(Obj *a, Obj *b) { return mk_int(a->u.i + b->u.i); }
Obj *sub(Obj *a, Obj *b) { return mk_int(a->u.i - b->u.i); }
Obj *mul(Obj *a, Obj *b) { return mk_int(a->u.i * b->u.i); }
Obj *divide(Obj *a, Obj *b) { return mk_int(a->u.i / b->u.i); }
Obj *num_eq(Obj *a, Obj *b) { return mk_int(a->u.i == b->u.i); }
Obj *lt(Obj *a, Obj *b) { return mk_int(a->u.i < b->u.i); }
Obj *gt(Obj *a, Obj *b) { return mk_int(a->u.i > b->u.i); }
Obj *car(Obj *o) { return o->u.pair.car; }
Obj *cdr(Obj *o) { return o->u.pair.cdr; }
Obj *is_pair(Obj *o) { return mk_int(o->is_pair); }
Obj *is_null(Obj *o) { return mk_int(o == NIL_obj); }
Obj *not(Obj *o) { return mk_int(o == NIL_obj); }
Obj *eq(Obj *a, Obj *b) { return mk_int(a == b); }

/* free_tree is the cheapest strategy, for the TREE shape: no two live
 * references can alias any reachable cell, so a plain recursive free
 * with no refcount bookkeeping is safe. */
void free_tree(Obj *o) {
  if (o == NULL || o == NIL_obj) return;
  if (o->is_pair) {
    free_tree(o->u.pair.car);
    free_tree(o->u.pair.cdr);
  }
  if (in_stack_pool(o)) {
    release_obj(o);
  } else {
    free(o);
  }
}

/* dec_ref is the DAG-shape strategy: ordinary non-atomic reference
 * counting, recursing into children only once the count reaches zero. */
void dec_ref(Obj *o) {
  if (o == NULL || o == NIL_obj) return;
  o->rc--;
  if (o->rc > 0) return;
  if (o->is_pair) {
    dec_ref(o->u.pair.car);
    dec_ref(o->u.pair.cdr);
  }
  if (in_stack_pool(o)) {
    release_obj(o);
  } else {
    free(o);
  }
}

/* --- weak references ---
 * A slot table for weak pointers: weak_get returns NULL for a slot
 * that weak_invalidate_on_free has cleared. Emitted code does not
 * call these, and the freers above do not invalidate slots. */
#define WEAK_TABLE_SIZE 1024
static Obj *weak_keys[WEAK_TABLE_SIZE];
static int weak_valid[WEAK_TABLE_SIZE];
static int weak_next = 0;

int weak_register(Obj *o) {
  int slot = weak_next % WEAK_TABLE_SIZE;
  weak_next++;
  weak_keys[slot] = o;
  weak_valid[slot] = 1;
  return slot;
}

Obj *weak_get(int slot) {
  if (slot < 0 || slot >= WEAK_TABLE_SIZE || !weak_valid[slot]) return NULL;
  return weak_keys[slot];
}

void weak_invalidate_on_free(Obj *o) {
  int i;
  for (i = 0; i < WEAK_TABLE_SIZE; i++) {
    if (weak_valid[i] && weak_keys[i] == o) weak_valid[i] = 0;
  }
}

/* --- Tarjan SCC builder, used for the CYCLIC-shape strategy's
 * deferred_release: a cyclic structure's members can't be individually
 * dec_ref'd to zero, so they're grouped into strongly connected
 * components and released together once nothing outside the
 * component still refers in. --- */
#define SCC_STACK_MAX 1024
static Obj *scc_stack[SCC_STACK_MAX];
static int scc_stack_top = 0;
static int scc_index_counter = 0;
static int scc_next_id = 0;

static void scc_push(Obj *o) {
  if (scc_stack_top < SCC_STACK_MAX) scc_stack[scc_stack_top++] = o;
}

void tarjan_strongconnect(Obj *o) {
  if (o == NULL || o->mark != 0) return;
  o->mark = ++scc_index_counter;
  scc_push(o);
  if (o->is_pair) {
    tarjan_strongconnect(o->u.pair.car);
    tarjan_strongconnect(o->u.pair.cdr);
  }
  if (o->scc_id == -1) {
    o->scc_id = scc_next_id++;
    while (scc_stack_top > 0 && scc_stack[scc_stack_top - 1] != o) {
      scc_stack[--scc_stack_top]->scc_id = o->scc_id;
    }
    if (scc_stack_top > 0) scc_stack_top--;
  }
}

/* --- deferred-decrement batcher ---
 * Cyclic releases are queued rather than performed inline so a long
 * chain of decrements can't recurse arbitrarily deep; safe_point()
 * drains the queue, and emitted code calls it once, at the end of
 * main. */
#define DEFER_QUEUE_MAX 4096
static Obj *defer_queue[DEFER_QUEUE_MAX];
static int defer_queue_len = 0;

void deferred_release(Obj *o) {
  if (o == NULL || o == NIL_obj) return;
  if (defer_queue_len < DEFER_QUEUE_MAX) {
    defer_queue[defer_queue_len++] = o;
  } else {
    dec_ref(o);
  }
}

void safe_point(void) {
  int i;
  for (i = 0; i < defer_queue_len; i++) {
    dec_ref(defer_queue[i]);
  }
  defer_queue_len = 0;
}
`
