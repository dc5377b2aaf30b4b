package main

import (
	"io"

	"github.com/swarmhive/swarmhive/internal/types"
)

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

func cellTypeOf(raw string) types.CellType {
	t := types.CellType(raw)
	if t.Valid() {
		return t
	}
	return types.CellTask
}
