// Package stream merges the stdout and stderr of an external process into one
// ordered sequence of chunks.
package stream

// Source names the stream a line was read from.
type Source string

const (
	Stdout Source = "stdout"
	Stderr Source = "stderr"
)

// Chunk is one element of an execution's output sequence. A sequence is
// finite and ends with exactly one chunk that has IsCompleted set. An error
// chunk is always the terminal one.
type Chunk struct {
	Content      string `json:"content"`
	Source       Source `json:"source,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	IsError      bool   `json:"isError"`
	IsCompleted  bool   `json:"isCompleted"`
}

// Content returns a non-terminal chunk carrying text read from src.
func Content(src Source, text string) Chunk {
	return Chunk{Content: text, Source: src}
}

// Completed returns the terminal chunk of a successful sequence.
func Completed() Chunk {
	return Chunk{IsCompleted: true}
}

// Failed returns a terminal error chunk describing err.
func Failed(err error) Chunk {
	return Failure(err.Error())
}

// Failure returns a terminal error chunk with the given message.
func Failure(msg string) Chunk {
	return Chunk{IsError: true, IsCompleted: true, ErrorMessage: msg}
}

// Terminal reports whether c ends its sequence.
func (c Chunk) Terminal() bool {
	return c.IsCompleted
}
