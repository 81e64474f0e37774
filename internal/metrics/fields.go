package metrics

// Metric attribute keys.
const (
	AttrMethod     = "method"
	AttrPath       = "path"
	AttrStatus     = "status"
	AttrSource     = "source"
	AttrSeasonType = "season_type"
	AttrMode       = "mode"
	AttrCacheKind  = "kind"
	AttrResult     = "result"
)
