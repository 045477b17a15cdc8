package explore

// Dedup aplatit les pages d'un type dans l'ordre de fetch et garde la
// première occurrence de chaque ID (first-seen-wins). La allow-list de
// statuts est appliquée ici, à chaque rendu, pas seulement au fetch.
// Dedup(Dedup(p)) == Dedup(p).
func Dedup(pages [][]FeedItem, allowed StatusSet) []FeedItem {
	n := 0
	for _, p := range pages {
		n += len(p)
	}

	seen := make(map[string]struct{}, n)
	out := make([]FeedItem, 0, n)
	for _, page := range pages {
		for _, item := range page {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			if !allowed.Allows(item.Status) {
				continue
			}
			out = append(out, item)
		}
	}
	return out
}
