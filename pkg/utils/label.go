package utils

// Label 是候选项上的解释性标记，沿推荐链路逐节点累积后随结果透传。
// 典型用途：记录候选来自哪个召回源、被哪条规则改写过分数。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / rank / rerank / rule / postprocess ...
}

// MergeLabel 合并同名 Label：Value 以 '|'、Source 以 ',' 累积，
// 保留完整历史而不是互相覆盖。任一侧为空时直接取非空一侧。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
