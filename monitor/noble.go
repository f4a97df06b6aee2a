package monitor

import "strconv"

// nobleTitles maps the gateway's noble level to its display title.
var nobleTitles = map[int]string{
	1: "游侠",
	2: "骑士",
	3: "子爵",
	4: "伯爵",
	5: "公爵",
	6: "国王",
	7: "皇帝",
}

// NobleTitle returns the display title for a noble level, falling back to the
// numeric level for tiers the table does not know.
func NobleTitle(level int) string {
	if title, ok := nobleTitles[level]; ok {
		return title
	}
	return "noble " + strconv.Itoa(level)
}
