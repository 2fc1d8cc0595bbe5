package main

import (
	"encoding/json"
	"io"

	"thingset/pkg/client"
)

type valueOut struct {
	ID    string `json:"id,omitempty"`
	Path  string `json:"path,omitempty"`
	Value any    `json:"value"`
}

type responseOut struct {
	Backend string     `json:"backend"`
	Status  string     `json:"status"`
	Values  []valueOut `json:"values,omitempty"`
}

func render(rsp *client.Response) responseOut {
	out := responseOut{Backend: rsp.Backend.String(), Status: rsp.Status.String()}
	for _, v := range rsp.Values {
		vo := valueOut{Path: v.Path, Value: client.Plain(v.Value)}
		if !v.ID.IsNone() {
			b, _ := v.ID.MarshalText()
			vo.ID = string(b)
		}
		out.Values = append(out.Values, vo)
	}
	return out
}

func printResponse(w io.Writer, rsp *client.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(render(rsp))
}
