// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lattice

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBitLevels(t *testing.T) {
	if !X.Leq(Zero) || !Zero.Leq(U) || !U.Leq(N) || !N.Leq(S) {
		t.Errorf("lattice order broken")
	}
	if Zero.Leq(One) || One.Leq(Zero) {
		t.Errorf("constants should be incomparable")
	}
	for _, s := range []string{"x", "0", "1", "e", "u", "n", "s"} {
		b, err := ParseB(s)
		if err != nil {
			t.Fatalf("could not parse %q: %v", s, err)
		}
		if b.String() != s {
			t.Errorf("round trip of %q gave %q", s, b.String())
		}
	}
}

func TestWeights(t *testing.T) {
	a := NewArena()
	u := a.New(U)
	s := a.New(S)
	n := a.New(N)
	if a.Weight(u) != 1 {
		t.Errorf("default weight should be 1, got %v", a.Weight(u))
	}
	if !IsInfinite(a.Weight(s)) {
		t.Errorf("star bits should have infinite weight")
	}
	if a.Weight(n) != math.Log2(3) {
		t.Errorf("N bits should weigh log2(3), got %v", a.Weight(n))
	}
	a.SetWeight(u, 5)
	if a.Weight(u) != 5 {
		t.Errorf("explicit weight not returned")
	}
}

func TestConstantsHaveNoDeps(t *testing.T) {
	a := NewArena()
	u := a.New(U)
	c := a.New(One, u)
	if a.HasDeps(c) {
		t.Errorf("constant bit should not have dependencies")
	}
	v := a.New(U, u, u)
	if diff := cmp.Diff([]Bit{u}, a.Deps(v)); diff != "" {
		t.Errorf("dependencies not normalized: %s", diff)
	}
}

func TestReachable(t *testing.T) {
	a := NewArena()
	p := a.New(U)
	q := a.New(U)
	m := a.New(U, p)
	r := a.New(U, m, q)
	anchors := NewBitSet(p, m)
	got := a.Reachable([]Bit{r}, anchors).Sorted()
	if diff := cmp.Diff([]Bit{m}, got); diff != "" {
		t.Errorf("walk should stop at anchors: %s", diff)
	}
	got = a.Reachable([]Bit{r}, NewBitSet(p, q)).Sorted()
	if diff := cmp.Diff([]Bit{p, q}, got); diff != "" {
		t.Errorf("unexpected reachable anchors: %s", diff)
	}
	if a.ReachableFromDeps(m, anchors).Has(m) {
		t.Errorf("m is not self-dependent")
	}
}

func TestCloneKeepsMetadata(t *testing.T) {
	a := NewArena()
	p := a.New(U)
	a.MarkInput(p, High)
	a.SetWeight(p, Infinity)
	a.SetTag(p, "secret")
	c := a.Clone(p)
	if c == p {
		t.Fatalf("clone must allocate a new bit")
	}
	if sec, ok := a.InputLevel(c); !ok || sec != High {
		t.Errorf("clone should keep the input marker")
	}
	if !IsInfinite(a.Weight(c)) || a.Tag(c) != "secret" {
		t.Errorf("clone should keep weight and tag")
	}
	k := a.Clone(a.New(Zero), p)
	if a.HasDeps(k) {
		t.Errorf("cloned constant should not get dependencies")
	}
}

func TestBitwiseOps(t *testing.T) {
	a := NewArena()
	h := a.Unknown(4)
	mask := a.Const(3, 4)
	masked := a.And(h, mask)
	if got := masked.Repr(a); got != "00uu" {
		t.Errorf("expected 00uu, got %s", got)
	}
	if !a.DependsOn(masked.Bits[0], h.Bits[0]) {
		t.Errorf("unknown result bit should depend on the unknown operand")
	}
	if a.HasDeps(masked.Bits[3]) {
		t.Errorf("constant result bit should not have dependencies")
	}
	if got := a.Or(h, a.Const(-1, 4)).Repr(a); got != "1111" {
		t.Errorf("expected 1111, got %s", got)
	}
	if got := a.Xor(a.Const(5, 4), a.Const(3, 4)).Repr(a); got != "0110" {
		t.Errorf("expected 0110, got %s", got)
	}
	if got := a.Not(a.Const(5, 4)).Repr(a); got != "1010" {
		t.Errorf("expected 1010, got %s", got)
	}
}

func TestJoin(t *testing.T) {
	a := NewArena()
	bot := a.Bot(4)
	if got := a.Join(bot, a.Const(5, 4)).Repr(a); got != "0101" {
		t.Errorf("X should be the identity of join, got %s", got)
	}
	if got := a.Join(a.Const(6, 4), bot).Repr(a); got != "0110" {
		t.Errorf("X should be the identity of join, got %s", got)
	}
	h := a.Unknown(4)
	joined := a.Join(bot, h)
	if got := joined.Repr(a); got != "uuuu" {
		t.Errorf("expected uuuu, got %s", got)
	}
	if !a.DependsOn(joined.Bits[0], h.Bits[0]) || a.DependsOn(joined.Bits[0], bot.Bits[0]) {
		t.Errorf("the joined bit should depend on the unknown bit only")
	}
	if got := a.Join(a.Const(5, 4), a.Const(3, 4)).Repr(a); got != "0uu1" {
		t.Errorf("expected 0uu1, got %s", got)
	}
	if got := a.Join(bot, bot).Repr(a); got != "xxxx" {
		t.Errorf("expected xxxx, got %s", got)
	}
}

func TestAppendOnlyValue(t *testing.T) {
	a := NewArena()
	var g AppendOnlyValue
	e := a.New(E)
	g2 := g.Append(a.Unknown(2), NewValue(e))
	if g.Len() != 0 {
		t.Errorf("append must not mutate the receiver")
	}
	if g2.Len() != 3 || g2.SizeWithoutEs(a) != 2 {
		t.Errorf("unexpected sizes %d/%d", g2.Len(), g2.SizeWithoutEs(a))
	}
	if g2.WithoutEs(a).Len() != 2 {
		t.Errorf("E bits should be removed")
	}
}

func TestIntervalEntropy(t *testing.T) {
	a := NewArena()
	v := a.Unknown(3)
	id := a.AddInterval(v, Interval{Lo: 0, Hi: 3})
	got, iv := a.IntervalOf(v.Bits[1])
	if got != id || iv.Entropy() != 2 {
		t.Errorf("unexpected interval %d %v", got, iv)
	}
	if id2, _ := a.IntervalOf(a.New(U)); id2 != 0 {
		t.Errorf("fresh bits do not belong to an interval")
	}
}
