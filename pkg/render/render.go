package render

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
	"github.com/sigi-k/vogdbAPI/pkg/model"
)

// FASTA line width
const lineWidth = 60

// PlainIDs writes one id per line without a trailing newline. No ids is an
// empty body.
func PlainIDs[T int64 | string](w http.ResponseWriter, ids []T) error {
	lines := make([]string, len(ids))
	for i, id := range ids {
		switch v := any(id).(type) {
		case int64:
			lines[i] = strconv.FormatInt(v, 10)
		case string:
			lines[i] = v
		}
	}
	return Plain(w, http.StatusOK, strings.Join(lines, "\n"))
}

func Plain(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	return err
}

func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Fail to encode response", zap.Error(err))
		return err
	}
	return nil
}

// AminoAcidFASTA writes the records as FASTA, records without a sequence
// are left out.
func AminoAcidFASTA(w http.ResponseWriter, seqs []model.AASequence) error {
	var sb strings.Builder
	for _, s := range seqs {
		writeRecord(&sb, s.ID, s.AASeq)
	}
	return Plain(w, http.StatusOK, sb.String())
}

func NucleotideFASTA(w http.ResponseWriter, seqs []model.NTSequence) error {
	var sb strings.Builder
	for _, s := range seqs {
		writeRecord(&sb, s.ID, s.NTSeq)
	}
	return Plain(w, http.StatusOK, sb.String())
}

func writeRecord(sb *strings.Builder, id string, seq *string) {
	if seq == nil {
		return
	}
	fmt.Fprintf(sb, ">%s\n", id)
	s := *seq
	for len(s) > lineWidth {
		sb.WriteString(s[:lineWidth])
		sb.WriteByte('\n')
		s = s[lineWidth:]
	}
	if s != "" {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
}
