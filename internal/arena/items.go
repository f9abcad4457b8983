package arena

// Item is a lootable pickup placed on a Passable tile.
type Item struct {
	ID       string
	Type     string
	Position Point
	Bonus    int
}

var itemTypes = []struct {
	name  string
	bonus int
}{
	{"medkit", 20},
	{"shield", 15},
	{"blade", 10},
}

// NewItem creates an item of the given kind at pos, identified by id. id
// must be strictly increasing within a world's lifetime; callers get one
// from World.nextItemID.
func NewItem(id, kind string, bonus int, pos Point) *Item {
	return &Item{ID: id, Type: kind, Position: pos, Bonus: bonus}
}
