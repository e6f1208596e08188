package world

import "github.com/annel0/blockverse/internal/vec"

// UpdateQueue очередь координат чанков, требующих пересылки или перестроения.
// Изменяющие операции хранилища кладут сюда чанк, внешний потребитель
// (рассылка, рендер, сохранение) забирает очередь через Drain.
type UpdateQueue struct {
	coords []vec.Vec3
}

// Push добавляет координату чанка в очередь
func (q *UpdateQueue) Push(coord vec.Vec3) {
	q.coords = append(q.coords, coord)
}

// Len возвращает количество записей, включая повторы
func (q *UpdateQueue) Len() int {
	return len(q.coords)
}

// Drain забирает очередь. Повторы схлопываются, порядок первого появления сохраняется.
func (q *UpdateQueue) Drain() []vec.Vec3 {
	if len(q.coords) == 0 {
		return nil
	}

	seen := make(map[vec.Vec3]struct{}, len(q.coords))
	out := make([]vec.Vec3, 0, len(q.coords))
	for _, c := range q.coords {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	q.coords = q.coords[:0]
	return out
}
