package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPage(t *testing.T) {
	cases := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"vacía", PageRequest{}, PageRequest{Limit: 20}},
		{"dentro de rango", PageRequest{Limit: 50, Offset: 10}, PageRequest{Limit: 50, Offset: 10}},
		{"límite excesivo", PageRequest{Limit: 100000}, PageRequest{Limit: MaxPageLimit}},
		{"negativos", PageRequest{Limit: -3, Offset: -1}, PageRequest{Limit: DefaultPageLimit}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.in
			p.DefaultPage()
			assert.Equal(t, tc.want, p)
			assert.Equal(t, PageResponse{Limit: tc.want.Limit, Offset: tc.want.Offset}, p.Response())
		})
	}
}
