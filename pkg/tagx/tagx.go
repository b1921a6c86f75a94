package tagx

import "sort"

func Copy(raw map[string]string) map[string]string {
	ret := make(map[string]string)
	for k, v := range raw {
		ret[k] = v
	}
	return ret
}

func SortedKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
