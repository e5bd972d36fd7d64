package boxfs

import (
	stderrors "errors"

	"github.com/feuerwagen/go-boxfs/errors"
)

var (
	ErrInvalidPath = errors.ErrInvalidPath
	ErrRemote      = errors.ErrAPIError

	ErrDirectoryDoesNotExist = stderrors.New("directory does not exist")
	ErrFileDoesNotExist      = stderrors.New("file does not exist")
	ErrDirectoryExists       = stderrors.New("directory exists")

	ErrUnableToReadFile         = stderrors.New("unable to read file")
	ErrUnableToWriteFile        = stderrors.New("unable to write file")
	ErrUnableToDeleteFile       = stderrors.New("unable to delete file")
	ErrUnableToDeleteDirectory  = stderrors.New("unable to delete directory")
	ErrUnableToCreateDirectory  = stderrors.New("unable to create directory")
	ErrUnableToRetrieveMetadata = stderrors.New("unable to retrieve metadata")
	ErrUnableToSetVisibility    = stderrors.New("unable to set visibility")
	ErrUnableToListContents     = stderrors.New("unable to list contents")
)

func newDirectoryDoesNotExist(path string) error {
	return errors.Wrap(ErrDirectoryDoesNotExist, path, nil)
}

func newFileDoesNotExist(path string) error {
	return errors.Wrap(ErrFileDoesNotExist, path, nil)
}

// newAdapterError reports a failed adapter operation on path, keeping cause reachable through errors.Is.
func newAdapterError(kind error, path string, cause error) error {
	return errors.Wrap(kind, "location "+path, cause)
}

func newUnsupportedError(op, path string) error {
	return errors.Wrap(ErrUnableToSetVisibility, op+" is not supported at location "+path, stderrors.ErrUnsupported)
}
