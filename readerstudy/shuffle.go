package readerstudy

import (
	"image"
	"math/rand"
)

// Shuffled presents the rows of an image table in a seeded random order. Studies should
// be shuffled so readers do not see examples in acquisition order.
type Shuffled struct {
	ImageTable
	order []int
}

// Shuffle wraps t with a permutation derived from seed.
func Shuffle(t ImageTable, seed int64) *Shuffled {
	rng := rand.New(rand.NewSource(seed))
	return &Shuffled{ImageTable: t, order: rng.Perm(t.Len())}
}

func (s *Shuffled) PrimaryKey(row int) string {
	return s.ImageTable.PrimaryKey(s.order[row])
}

func (s *Shuffled) Image(row int, column string) (image.Image, error) {
	return s.ImageTable.Image(s.order[row], column)
}
