package userdata

import "fmt"

// WeaponCount is one row of the acquired weapons list.
type WeaponCount struct {
	Name  string
	Count int
}

func (w WeaponCount) String() string {
	return fmt.Sprintf("%s (x%d)", w.Name, w.Count)
}

// Tally counts duplicate weapon names, keeping the order in which each name
// first appears.
func Tally(weapons []string) []WeaponCount {
	rows := make([]WeaponCount, 0, len(weapons))
	index := make(map[string]int, len(weapons))

	for _, name := range weapons {
		if i, seen := index[name]; seen {
			rows[i].Count++
			continue
		}
		index[name] = len(rows)
		rows = append(rows, WeaponCount{Name: name, Count: 1})
	}
	return rows
}

// Weapons returns the tally for the app profile in s, or nil when it is absent.
func (s State) Weapons() []WeaponCount {
	if s.App == nil {
		return nil
	}
	return Tally(s.App.Weapons)
}
