package provider

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// InteractiveSelector prints the volumes and reads the chosen index from In.
type InteractiveSelector struct {
	In  io.Reader
	Out io.Writer
}

func (s InteractiveSelector) Select(volumes []Volume) (int, error) {
	for i, v := range volumes {
		fmt.Fprintf(s.Out, "[%d] %s (%d bytes)\n", i, v.Name, v.Size)
	}
	fmt.Fprint(s.Out, "$ ")
	line, err := bufio.NewReader(s.In).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, fmt.Errorf("read volume selection: %w", err)
	}
	i, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSelection, strings.TrimSpace(line))
	}
	if i < 0 || i >= len(volumes) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSelection, i)
	}
	return i, nil
}

// FixedSelector always picks the same volume index.
type FixedSelector int

func (s FixedSelector) Select(volumes []Volume) (int, error) {
	if int(s) < 0 || int(s) >= len(volumes) {
		return 0, fmt.Errorf("%w: %d of %d volumes", ErrInvalidSelection, int(s), len(volumes))
	}
	return int(s), nil
}
