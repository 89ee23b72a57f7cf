package course_test

import (
	"context"
	"testing"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	dummydb "github.com/muddyapp/muddy/storage/database/dummy"
)

func setup(t *testing.T) *course.Service {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	return course.NewService(dummydb.NewCourseRepository(db))
}

func createCourse(t *testing.T, svc *course.Service, name, code string) course.Course {
	t.Helper()

	nc := course.NewCourse{Name: name, Code: code}
	if err := nc.Validate(context.Background(), svc); err != nil {
		t.Fatalf("NewCourse.Validate(): %v", err)
	}
	crs, err := svc.Create(context.Background(), nc)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	return crs
}

func Test_courseService_Create(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	crs := createCourse(t, svc, "Operating Systems", "CS301")
	if crs.ID == "" {
		t.Error("Create() returned an empty ID")
	}

	// codes are unique, case-insensitively
	nc := course.NewCourse{Name: "Other", Code: "cs301"}
	err := nc.Validate(ctx, svc)
	vErr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("Validate() error = %v; want *core.ValidationError", err)
	}
	if len(vErr.Fields) == 0 || vErr.Fields[0].Field != "code" {
		t.Errorf("Fields = %+v; want a code error", vErr.Fields)
	}

	// required fields
	nc = course.NewCourse{Name: "  ", Code: ""}
	if err := nc.Validate(ctx, svc); err == nil {
		t.Error("Validate() accepted blank fields")
	}
}

func Test_courseService_Query(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	os := createCourse(t, svc, "Operating Systems", "CS301")
	algo := createCourse(t, svc, "Algorithms", "CS201")

	courses, err := svc.Query(ctx, "")
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("len(courses) = %d; want 2", len(courses))
	}
	// ordered by name
	if courses[0].ID != algo.ID || courses[1].ID != os.ID {
		t.Errorf("courses = %v; want [%s %s]", courses, algo.Name, os.Name)
	}

	courses, err = svc.Query(ctx, "cs301")
	if err != nil {
		t.Fatalf("Query(code): %v", err)
	}
	if len(courses) != 1 || courses[0].ID != os.ID {
		t.Errorf("Query(cs301) = %v; want [%s]", courses, os.ID)
	}
}

func Test_courseService_Update(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	crs := createCourse(t, svc, "Operating Systems", "CS301")
	other := createCourse(t, svc, "Algorithms", "CS201")

	// a partial patch keeps the rest
	uc := course.UpdateCourse{Name: "Operating Systems II"}
	if err := uc.Validate(ctx, crs, svc); err != nil {
		t.Fatalf("UpdateCourse.Validate(): %v", err)
	}
	got, err := svc.Update(ctx, crs.ID, uc)
	if err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if got.Name != "Operating Systems II" || got.Code != "CS301" {
		t.Errorf("Update() = %+v", got)
	}

	// keeping one's own code is not a collision
	uc = course.UpdateCourse{Code: "CS301"}
	if err := uc.Validate(ctx, crs, svc); err != nil {
		t.Errorf("Validate() own code: %v", err)
	}

	// taking another course's code is
	uc = course.UpdateCourse{Code: other.Code}
	if err := uc.Validate(ctx, crs, svc); err == nil {
		t.Error("Validate() accepted a duplicate code")
	}

	if _, err = svc.Update(ctx, "nope", course.UpdateCourse{Name: "X", Code: "Y"}); err != course.ErrNotFound {
		t.Errorf("Update() unknown ID error = %v; want ErrNotFound", err)
	}
}

func Test_courseService_Delete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	crs := createCourse(t, svc, "Operating Systems", "CS301")
	if err := svc.Delete(ctx, crs.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err := svc.GetByID(ctx, crs.ID); err != course.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v; want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, crs.ID); err != course.ErrNotFound {
		t.Errorf("Delete() again error = %v; want ErrNotFound", err)
	}
}
