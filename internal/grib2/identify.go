package grib2

import (
	"encoding/binary"
)

// Identity is the cheap metadata of one message: enough to pick the
// right field out of a multi-message file without unpacking data.
type Identity struct {
	Discipline        byte
	ParameterCategory byte
	ParameterNumber   byte
	LevelType         byte
	LevelValue        float64
}

// Identify parses only the framing and product definition of a
// message.
func Identify(msg []byte) (Identity, error) {
	if len(msg) < 16 || string(msg[0:4]) != "GRIB" {
		return Identity{}, ErrTruncated
	}
	total := binary.BigEndian.Uint64(msg[8:16])
	if total > uint64(len(msg)) {
		return Identity{}, ErrTruncated
	}
	secs, err := walkSections(msg[:total])
	if err != nil {
		return Identity{}, err
	}
	pd, err := parseSection4(secs.sec4)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Discipline:        msg[6],
		ParameterCategory: pd.category,
		ParameterNumber:   pd.number,
		LevelType:         pd.levelType,
		LevelValue:        pd.levelValue,
	}, nil
}
