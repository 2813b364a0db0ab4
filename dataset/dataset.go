// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"slices"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Feedback is the play count of a user for an item.
type Feedback struct {
	ItemId string
	Score  int
}

// UserVector is the feedback of a user, strictly increasing and unique by ItemId.
type UserVector []Feedback

func compareItem(f Feedback, itemId string) int {
	return strings.Compare(f.ItemId, itemId)
}

// Find returns the position of itemId in the vector and whether it exists.
func (v UserVector) Find(itemId string) (int, bool) {
	return slices.BinarySearchFunc(v, itemId, compareItem)
}

// Contains reports whether the user has feedback on itemId.
func (v UserVector) Contains(itemId string) bool {
	_, ok := v.Find(itemId)
	return ok
}

// Score returns the score of itemId, or 0 if the user has no feedback on it.
func (v UserVector) Score(itemId string) int {
	if i, ok := v.Find(itemId); ok {
		return v[i].Score
	}
	return 0
}

// Without returns a new vector with the i-th entry removed. v is left unchanged.
func (v UserVector) Without(i int) UserVector {
	w := make(UserVector, 0, len(v)-1)
	w = append(w, v[:i]...)
	return append(w, v[i+1:]...)
}

// ItemIds returns item ids in vector order.
func (v UserVector) ItemIds() []string {
	return lo.Map(v, func(f Feedback, _ int) string {
		return f.ItemId
	})
}

// Validate checks that the vector is sorted, unique and non-negative.
func (v UserVector) Validate() error {
	for i := range v {
		if v[i].Score < 0 {
			return errors.NotValidf("negative score %d of item %s", v[i].Score, v[i].ItemId)
		}
		if i > 0 && v[i-1].ItemId >= v[i].ItemId {
			return errors.NotValidf("unsorted item %s after %s", v[i].ItemId, v[i-1].ItemId)
		}
	}
	return nil
}

// Users is a read-only, indexed collection of user vectors.
type Users interface {
	Count() int
	User(i int) UserVector
}

// Catalog stores every user vector in one contiguous arena. The index of a user is its
// identity; User returns capacity-clipped views so the arena can't be written through them.
type Catalog struct {
	feedback []Feedback
	offsets  []int
	userDict *FreqDict
	itemDict *FreqDict
}

// NewCatalog creates a catalog from validated user vectors. Users are named by their
// position ("0", "1", ...).
func NewCatalog(users ...UserVector) (*Catalog, error) {
	builder := NewCatalogBuilder(len(users))
	for i, user := range users {
		if err := user.Validate(); err != nil {
			return nil, errors.Annotatef(err, "user %d", i)
		}
		userId := strconv.Itoa(i)
		builder.AddUser(userId)
		for _, f := range user {
			if err := builder.Add(userId, f.ItemId, f.Score); err != nil {
				return nil, errors.Trace(err)
			}
		}
	}
	return builder.Build(), nil
}

func (c *Catalog) Count() int {
	return len(c.offsets) - 1
}

func (c *Catalog) User(i int) UserVector {
	begin, end := c.offsets[i], c.offsets[i+1]
	return c.feedback[begin:end:end]
}

// CountFeedback returns the number of (user, item) pairs.
func (c *Catalog) CountFeedback() int {
	return len(c.feedback)
}

// CountItems returns the number of distinct items.
func (c *Catalog) CountItems() int {
	return c.itemDict.Count()
}

// UserId returns the external id of the i-th user.
func (c *Catalog) UserId(i int) string {
	s, _ := c.userDict.String(i)
	return s
}

// UserIndex returns the index of a user or NotId.
func (c *Catalog) UserIndex(userId string) int {
	return c.userDict.Lookup(userId)
}

// Items returns the set of distinct item ids.
func (c *Catalog) Items() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(c.itemDict.Strings()...)
}

// ItemPopularity returns the number of users who interacted with each item.
func (c *Catalog) ItemPopularity() map[string]int {
	popularity := make(map[string]int, c.itemDict.Count())
	for i, itemId := range c.itemDict.Strings() {
		popularity[itemId] = c.itemDict.Freq(i)
	}
	return popularity
}

// Hide returns a view of the catalog in which users in [begin, end) have no feedback.
// Hidden users are still counted, so they take part in neighbor searches with zero
// similarity, exactly like cleared entries.
func (c *Catalog) Hide(begin, end int) *FoldView {
	if begin < 0 || end > c.Count() || begin > end {
		panic("invalid hidden range")
	}
	return &FoldView{catalog: c, begin: begin, end: end}
}

// FoldView is an immutable view of a catalog with a range of users hidden.
type FoldView struct {
	catalog *Catalog
	begin   int
	end     int
}

func (v *FoldView) Count() int {
	return v.catalog.Count()
}

func (v *FoldView) User(i int) UserVector {
	if v.IsHidden(i) {
		return nil
	}
	return v.catalog.User(i)
}

// IsHidden reports whether the i-th user is held out by this view.
func (v *FoldView) IsHidden(i int) bool {
	return i >= v.begin && i < v.end
}

// CatalogBuilder collects feedback and builds a Catalog.
type CatalogBuilder struct {
	userDict *FreqDict
	feedback [][]Feedback
}

// NewCatalogBuilder creates a builder. sizeHint is the expected number of users.
func NewCatalogBuilder(sizeHint int) *CatalogBuilder {
	return &CatalogBuilder{
		userDict: NewFreqDict(),
		feedback: make([][]Feedback, 0, max(sizeHint, 0)),
	}
}

// AddUser registers a user without feedback.
func (b *CatalogBuilder) AddUser(userId string) int {
	userIndex := b.userDict.NotCount(userId)
	if userIndex == len(b.feedback) {
		b.feedback = append(b.feedback, nil)
	}
	return userIndex
}

// Add appends a piece of feedback. Scores of repeated (user, item) pairs are summed.
func (b *CatalogBuilder) Add(userId, itemId string, score int) error {
	if score < 0 {
		return errors.NotValidf("negative score %d of user %s and item %s", score, userId, itemId)
	}
	userIndex := b.AddUser(userId)
	b.userDict.Id(userId)
	b.feedback[userIndex] = append(b.feedback[userIndex], Feedback{ItemId: itemId, Score: score})
	return nil
}

// Build sorts and merges feedback of each user and packs it into a catalog.
func (b *CatalogBuilder) Build() *Catalog {
	total := 0
	for _, f := range b.feedback {
		total += len(f)
	}
	catalog := &Catalog{
		feedback: make([]Feedback, 0, total),
		offsets:  make([]int, 1, len(b.feedback)+1),
		userDict: b.userDict,
		itemDict: NewFreqDict(),
	}
	for _, f := range b.feedback {
		slices.SortStableFunc(f, func(a, b Feedback) int {
			return strings.Compare(a.ItemId, b.ItemId)
		})
		begin := len(catalog.feedback)
		for _, entry := range f {
			if n := len(catalog.feedback); n > begin && catalog.feedback[n-1].ItemId == entry.ItemId {
				catalog.feedback[n-1].Score += entry.Score
				continue
			}
			catalog.feedback = append(catalog.feedback, entry)
			catalog.itemDict.Id(entry.ItemId)
		}
		catalog.offsets = append(catalog.offsets, len(catalog.feedback))
	}
	b.feedback = nil
	return catalog
}
