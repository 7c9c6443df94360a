package adapters

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const buildRecordFileName = "lockfile.yaml"

// OutputFileAdapter writes build metadata into a component's OUTPUT directory.
type OutputFileAdapter struct{}

func NewOutputFileAdapter() OutputFileAdapter {
	return OutputFileAdapter{}
}

func (a OutputFileAdapter) WriteBuildRecord(dir string, record types.BuildRecord) (string, error) {
	if dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	data, err := yaml.Marshal(record)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode build record").
			WithCause(err)
	}
	path := filepath.Join(dir, buildRecordFileName)
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (a OutputFileAdapter) ReadBuildRecord(dir string) (types.BuildRecord, bool, error) {
	path := filepath.Join(dir, buildRecordFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.BuildRecord{}, false, nil
	}
	if err != nil {
		return types.BuildRecord{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read build record: %s", path)).
			WithCause(err)
	}
	var record types.BuildRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return types.BuildRecord{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("malformed build record: %s", path)).
			WithCause(err)
	}
	return record, true, nil
}

var _ ports.BuildRecordPort = OutputFileAdapter{}
