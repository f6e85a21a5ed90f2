package valueobject

import (
	"sort"

	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// SectionSet: непустое множество идентификаторов секций инвентаря.
// Порядок не важен, хранится отсортированным.
type SectionSet []int64

func NewSectionSet(ids []int64) (SectionSet, error) {
	if len(ids) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужно указать хотя бы одну секцию")
	}

	seen := make(map[int64]struct{}, len(ids))
	set := make(SectionSet, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор секции")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}

	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set, nil
}

func (s SectionSet) Contains(id int64) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Clone возвращает независимую копию, чтобы снимок сделки не разделял память с предложением.
func (s SectionSet) Clone() SectionSet {
	out := make(SectionSet, len(s))
	copy(out, s)
	return out
}

func (s SectionSet) Int64s() []int64 {
	return []int64(s.Clone())
}
