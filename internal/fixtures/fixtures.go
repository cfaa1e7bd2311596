// Package fixtures loads a GenerateTimetable input from a JSON file. It
// generalizes the teacher's generic JSON-file loader (one struct per
// entity, unmarshalled straight off disk) to this repo's own domain
// shapes instead of the original course-catalog schema.
package fixtures

import (
	"encoding/json"
	"fmt"
	"os"

	"timetable-engine/internal/domain"
)

type courseDoc struct {
	ID               string   `json:"id"`
	Code             string   `json:"code"`
	Name             string   `json:"name"`
	FacultyID        string   `json:"faculty_id"`
	Credits          int      `json:"credits"`
	Duration         int      `json:"duration"`
	SubjectType      string   `json:"subject_type"`
	RequiredFeatures []string `json:"required_features"`
	StudentIDs       []string `json:"student_ids"`
}

type facultyDoc struct {
	ID               string             `json:"id"`
	MaxHoursPerWeek  int                `json:"max_hours_per_week"`
	AvailableSlotIDs []string           `json:"available_slot_ids"`
	PreferredSlots   map[string]float64 `json:"preferred_slots"`
}

type roomDoc struct {
	ID       string   `json:"id"`
	Capacity int      `json:"capacity"`
	Features []string `json:"features"`
}

type slotDoc struct {
	ID        string `json:"id"`
	Day       int    `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Order     int    `json:"order"`
}

type studentDoc struct {
	ID           string `json:"id"`
	DepartmentID string `json:"department_id"`
}

// Document is the on-disk fixture shape: every entity GenerateTimetable's
// Input embeds, plus the default soft-metric weights. Run-scoped fields
// (seed, deadline, Q-table key) are left to CLI flags, not the fixture.
type Document struct {
	Courses   []courseDoc        `json:"courses"`
	Faculty   []facultyDoc       `json:"faculty"`
	Rooms     []roomDoc          `json:"rooms"`
	TimeSlots []slotDoc          `json:"time_slots"`
	Students  []studentDoc       `json:"students"`
	Weights   map[string]float64 `json:"weights"`
}

// Load reads and decodes the fixture at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("fixtures: reading %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("fixtures: decoding %s: %w", path, err)
	}
	return doc, nil
}

func toSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// ToCourses converts every course document into a domain.Course.
func (d Document) ToCourses() []domain.Course {
	out := make([]domain.Course, 0, len(d.Courses))
	for _, c := range d.Courses {
		out = append(out, domain.Course{
			ID:               c.ID,
			Code:             c.Code,
			Name:             c.Name,
			FacultyID:        c.FacultyID,
			Credits:          c.Credits,
			Duration:         c.Duration,
			SubjectType:      c.SubjectType,
			RequiredFeatures: toSet(c.RequiredFeatures),
			StudentIDs:       toSet(c.StudentIDs),
		})
	}
	return out
}

// ToFaculty converts every faculty document into a domain.Faculty.
func (d Document) ToFaculty() []domain.Faculty {
	out := make([]domain.Faculty, 0, len(d.Faculty))
	for _, f := range d.Faculty {
		available := make(map[domain.SlotID]struct{}, len(f.AvailableSlotIDs))
		for _, id := range f.AvailableSlotIDs {
			available[id] = struct{}{}
		}
		preferred := make(map[domain.SlotID]float64, len(f.PreferredSlots))
		for slot, score := range f.PreferredSlots {
			preferred[slot] = score
		}
		out = append(out, domain.Faculty{
			ID:               f.ID,
			MaxHoursPerWeek:  f.MaxHoursPerWeek,
			AvailableSlotIDs: available,
			PreferredSlots:   preferred,
		})
	}
	return out
}

// ToRooms converts every room document into a domain.Room.
func (d Document) ToRooms() []domain.Room {
	out := make([]domain.Room, 0, len(d.Rooms))
	for _, r := range d.Rooms {
		out = append(out, domain.Room{ID: r.ID, Capacity: r.Capacity, Features: toSet(r.Features)})
	}
	return out
}

// ToTimeSlots converts every slot document into a domain.TimeSlot.
func (d Document) ToTimeSlots() []domain.TimeSlot {
	out := make([]domain.TimeSlot, 0, len(d.TimeSlots))
	for _, s := range d.TimeSlots {
		out = append(out, domain.TimeSlot{ID: s.ID, Day: s.Day, StartTime: s.StartTime, EndTime: s.EndTime, Order: s.Order})
	}
	return out
}

// ToStudents converts every student document into a domain.Student.
func (d Document) ToStudents() []domain.Student {
	out := make([]domain.Student, 0, len(d.Students))
	for _, s := range d.Students {
		out = append(out, domain.Student{ID: s.ID, DepartmentID: s.DepartmentID})
	}
	return out
}
