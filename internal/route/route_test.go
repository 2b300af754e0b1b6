package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTablePorts(t *testing.T) {
	table := Table{
		"a": {Port: 8080},
		"b": {Port: 9000},
	}

	ports := table.Ports()
	assert.Len(t, ports, 2)
	assert.Contains(t, ports, 8080)
	assert.Contains(t, ports, 9000)
}

func TestTableTokensSorted(t *testing.T) {
	table := Table{
		"charlie": {Port: 3},
		"alpha":   {Port: 1},
		"bravo":   {Port: 2},
	}

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, table.Tokens())
}

func TestTableHas(t *testing.T) {
	table := Table{"tok": {Port: 8080}}
	assert.True(t, table.Has("tok"))
	assert.False(t, table.Has("other"))
}

func TestTableClone(t *testing.T) {
	orig := Table{"tok": {Port: 8080}}
	clone := orig.Clone()

	clone["new"] = Route{Port: 9000}
	assert.Len(t, orig, 1)
	assert.Len(t, clone, 2)
}

func TestEmptyTable(t *testing.T) {
	var table Table
	assert.Empty(t, table.Ports())
	assert.Empty(t, table.Tokens())
}
