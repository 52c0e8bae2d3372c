// Package utils 放置跨包共享的小工具。
package utils

import "strings"

// Label 是候选或请求上的可解释标记，例如 recall_source=space_style、rank_model=blend。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / recommend
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，已出现过的片段不重复追加。
func MergeLabel(existing Label, incoming Label) Label {
	return Label{
		Value:  appendPart(existing.Value, incoming.Value, "|"),
		Source: appendPart(existing.Source, incoming.Source, ","),
	}
}

func appendPart(acc, part, sep string) string {
	switch {
	case part == "":
		return acc
	case acc == "":
		return part
	}
	for _, p := range strings.Split(acc, sep) {
		if p == part {
			return acc
		}
	}
	return acc + sep + part
}
