package registry

import (
	"io"
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Roster is a list of voters importable from a YAML document.
type Roster struct {
	Voters []RosterEntry `yaml:"voters"`
}

// RosterEntry is one voter of a YAML roster.
type RosterEntry struct {
	NationalID   string `yaml:"national_id"`
	Email        string `yaml:"email"`
	FullName     string `yaml:"full_name"`
	Phone        string `yaml:"phone"`
	Constituency string `yaml:"constituency"`
	Region       string `yaml:"region"`
	Gender       string `yaml:"gender"`
	BirthDate    string `yaml:"birth_date"`
}

// DecodeRoster reads a YAML roster.
func DecodeRoster(in io.Reader) ([]Voter, error) {
	roster := Roster{}

	err := yaml.NewDecoder(in).Decode(&roster)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode roster: %v", err)
	}

	voters := make([]Voter, len(roster.Voters))
	for i, entry := range roster.Voters {
		voters[i] = Voter{
			NationalID:   entry.NationalID,
			Email:        entry.Email,
			FullName:     entry.FullName,
			Phone:        entry.Phone,
			Constituency: entry.Constituency,
			Region:       entry.Region,
			Gender:       entry.Gender,
			BirthDate:    entry.BirthDate,
		}
	}

	return voters, nil
}

// LoadRoster reads a YAML roster file.
func LoadRoster(path string) ([]Voter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("couldn't open roster: %v", err)
	}

	defer file.Close()

	return DecodeRoster(file)
}
