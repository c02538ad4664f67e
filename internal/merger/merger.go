// Package merger combines per-chunk extraction results into one per-file map.
package merger

import (
	"log/slog"

	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/models"
)

// RemovalThreshold is the number of sightings of one identity at which every
// object carrying it is dropped from its category. Two sightings collapse to a
// single copy; the third removes the identity entirely.
const RemovalThreshold = 3

// Merge combines existing and incoming category maps. Categories present in both
// are concatenated (existing first, each side keeping its order); categories in
// only one side are carried over. Each category is then deduplicated by identity
// key. Neither input is modified.
func Merge(existing, incoming models.ObjectMap) models.ObjectMap {
	logger := logging.Component("merger")

	out := make(models.ObjectMap, len(existing)+len(incoming))
	for cat, objs := range existing.Clone() {
		out[cat] = objs
	}
	for cat, objs := range incoming.Clone() {
		out[cat] = append(out[cat], objs...)
	}

	for cat, objs := range out {
		if !cat.IsKnown() {
			logger.Warn("merging unknown category", "category", cat, "objects", len(objs))
		}
		out[cat] = dedupe(cat, objs, logger)
	}
	return out
}

// dedupe keeps the first object of every identity and folds the sightings of
// later duplicates into it. Identities that reach RemovalThreshold are removed.
// Objects without any identity (no name and no snippet) are never deduplicated.
func dedupe(cat models.Category, objs []models.CodeObject, logger *slog.Logger) []models.CodeObject {
	if len(objs) == 0 {
		return objs
	}

	sightings := make(map[models.IdentityKey]int, len(objs))
	kept := make([]models.CodeObject, 0, len(objs))

	for _, obj := range objs {
		key := obj.Key()
		if key.Value == "" {
			kept = append(kept, obj)
			continue
		}
		if _, seen := sightings[key]; seen {
			sightings[key] += obj.Sightings()
			continue
		}
		sightings[key] = obj.Sightings()
		kept = append(kept, obj)
	}

	result := make([]models.CodeObject, 0, len(kept))
	for _, obj := range kept {
		key := obj.Key()
		if key.Value == "" {
			result = append(result, obj)
			continue
		}
		n := sightings[key]
		if n >= RemovalThreshold {
			logger.Debug("dropping repeated identity",
				"category", cat,
				"identity", key.Value,
				"type", key.Type,
				"sightings", n,
			)
			continue
		}
		result = append(result, obj.WithSightings(n))
	}
	return result
}
