// internal/contacts/parser.go
package contacts

import (
	"encoding/csv"
	"io"
	"net/mail"
	"strings"

	appErrors "github.com/unclebandit/mailpacer-backend/internal/errors"
	"github.com/unclebandit/mailpacer-backend/internal/model"
)

// ParseList splits pasted text into contacts. Accepted per-line formats:
//
//	email
//	email,name
//	email;name
//
// Lines whose address is not valid email syntax are skipped. An input that
// yields no valid contacts is an error.
func ParseList(input string) ([]model.Contact, error) {
	var list []model.Contact

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		email, name := splitLine(line)
		c, ok := validate(email, name)
		if !ok {
			continue
		}
		list = append(list, c)
	}

	if len(list) == 0 {
		return nil, appErrors.NewInvalidInput("contact list is empty or contains no valid email addresses")
	}
	return list, nil
}

// ParseCSV reads contacts from CSV records shaped email,name. A header row
// is detected by its first column not parsing as an email address.
func ParseCSV(r io.Reader) ([]model.Contact, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var list []model.Contact
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.NewInvalidInput("malformed CSV: " + err.Error())
		}
		if len(record) == 0 {
			continue
		}

		email := record[0]
		name := ""
		if len(record) > 1 {
			name = record[1]
		}

		c, ok := validate(email, name)
		if !ok {
			continue
		}
		list = append(list, c)
	}

	if len(list) == 0 {
		return nil, appErrors.NewInvalidInput("CSV contains no valid email addresses")
	}
	return list, nil
}

func splitLine(line string) (email, name string) {
	sep := ","
	if !strings.Contains(line, ",") && strings.Contains(line, ";") {
		sep = ";"
	}
	parts := strings.SplitN(line, sep, 2)
	email = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		name = strings.TrimSpace(parts[1])
	}
	return email, name
}

func validate(email, name string) (model.Contact, bool) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return model.Contact{}, false
	}
	return model.Contact{Email: addr.Address, Name: strings.TrimSpace(name)}, true
}
