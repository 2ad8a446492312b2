package app

import (
	"encoding/json"
	"io"

	"go.uber.org/zap"
)

func Read(reader io.ReadCloser) ([]byte, error) {
	var err error

	defer func() {
		err = (reader).Close()
		if err != nil {
			zap.S().Errorw("Error occured", "error", err.Error())
		}
	}()

	var content []byte
	content, err = io.ReadAll(reader)

	if err != nil {
		return nil, err
	}

	return content, nil
}

func ReadJSON[T any](content []byte) (*T, error) {
	var t *T
	err := json.Unmarshal(content, &t)

	if err != nil {
		return nil, err
	}

	return t, nil
}
