// file: services/instance_service_test.go
package services

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"CASCTF/config"
	"CASCTF/models"
)

func setPortRange(t *testing.T, min, max int) {
	t.Helper()
	t.Setenv("CHALLENGE_INSTANCE_PORT_MIN", strconv.Itoa(min))
	t.Setenv("CHALLENGE_INSTANCE_PORT_MAX", strconv.Itoa(max))
}

func TestAllocateFreeHostPort(t *testing.T) {
	setPortRange(t, 41500, 41502)

	excluded := map[int]bool{41500: true, 41502: true}
	port, err := AllocateFreeHostPort(excluded)
	if err != nil {
		t.Fatalf("AllocateFreeHostPort returned error: %v", err)
	}
	if port != 41501 {
		t.Errorf("allocated %d, want the only non-excluded port 41501", port)
	}
}

func TestAllocateFreeHostPortSkipsBoundPort(t *testing.T) {
	setPortRange(t, 41510, 41511)

	ln, err := net.Listen("tcp", "0.0.0.0:41510")
	if err != nil {
		t.Skipf("cannot bind test port: %v", err)
	}
	defer ln.Close()

	port, err := AllocateFreeHostPort(map[int]bool{})
	if err != nil {
		t.Fatalf("AllocateFreeHostPort returned error: %v", err)
	}
	if port != 41511 {
		t.Errorf("allocated %d, want 41511 (41510 is bound)", port)
	}
}

func TestAllocateFreeHostPortExhausted(t *testing.T) {
	setPortRange(t, 41520, 41522)

	excluded := map[int]bool{41520: true, 41521: true, 41522: true}
	_, err := AllocateFreeHostPort(excluded)
	if !errors.Is(err, ErrPortPoolExhausted) {
		t.Errorf("expected ErrPortPoolExhausted, got %v", err)
	}
}

func TestActiveHostPorts(t *testing.T) {
	db := openTestDB(t)
	now := NowTS()

	instances := []models.ChallengeInstance{
		{UserID: 1, ChallengeID: 1, DockerProjectName: "p1", RuntimeComposePath: "/tmp/p1.yml",
			ServiceName: "web", HostPort: 40001, ContainerPort: 80, CreatedTS: now, ExpiresTS: now + 600},
		{UserID: 2, ChallengeID: 1, DockerProjectName: "p2", RuntimeComposePath: "/tmp/p2.yml",
			ServiceName: "web", HostPort: 40002, ContainerPort: 80, CreatedTS: now - 7200, ExpiresTS: now - 3600},
	}
	for i := range instances {
		if err := db.Create(&instances[i]).Error; err != nil {
			t.Fatalf("failed to create instance: %v", err)
		}
	}

	ports := activeHostPorts(db)
	if !ports[40001] {
		t.Error("active instance port should be excluded from the pool")
	}
	if ports[40002] {
		t.Error("expired instance port should be reusable")
	}
}

func TestCleanupExpiredInstances(t *testing.T) {
	db := openTestDB(t)
	now := NowTS()
	missingCompose := filepath.Join(t.TempDir(), "gone.yml")

	expired := models.ChallengeInstance{
		UserID: 1, ChallengeID: 1, DockerProjectName: "expired-p",
		RuntimeComposePath: missingCompose, ServiceName: "web",
		HostPort: 40010, ContainerPort: 80, CreatedTS: now - 7200, ExpiresTS: now - 1,
	}
	active := models.ChallengeInstance{
		UserID: 2, ChallengeID: 1, DockerProjectName: "active-p",
		RuntimeComposePath: missingCompose, ServiceName: "web",
		HostPort: 40011, ContainerPort: 80, CreatedTS: now, ExpiresTS: now + 600,
	}
	for _, inst := range []*models.ChallengeInstance{&expired, &active} {
		if err := db.Create(inst).Error; err != nil {
			t.Fatalf("failed to create instance: %v", err)
		}
	}

	CleanupExpiredInstances(db)

	var remaining []models.ChallengeInstance
	db.Find(&remaining)
	if len(remaining) != 1 || remaining[0].DockerProjectName != "active-p" {
		t.Errorf("expected only the active instance to survive, got %+v", remaining)
	}
}

func TestCleanupUserOtherInstances(t *testing.T) {
	db := openTestDB(t)
	now := NowTS()
	missingCompose := filepath.Join(t.TempDir(), "gone.yml")

	mk := func(userID, challengeID uint32, project string) {
		t.Helper()
		inst := models.ChallengeInstance{
			UserID: userID, ChallengeID: challengeID, DockerProjectName: project,
			RuntimeComposePath: missingCompose, ServiceName: "web",
			HostPort: int(40020 + userID*10 + challengeID), ContainerPort: 80,
			CreatedTS: now, ExpiresTS: now + 600,
		}
		if err := db.Create(&inst).Error; err != nil {
			t.Fatalf("failed to create instance %s: %v", project, err)
		}
	}
	mk(1, 1, "u1-c1")
	mk(1, 2, "u1-c2")
	mk(2, 1, "u2-c1")

	CleanupUserOtherInstances(db, 1, 2)

	var projects []string
	db.Model(&models.ChallengeInstance{}).Order("docker_project_name asc").Pluck("docker_project_name", &projects)
	if fmt.Sprint(projects) != "[u1-c2 u2-c1]" {
		t.Errorf("remaining projects = %v, want [u1-c2 u2-c1]", projects)
	}
}

func TestFindUserInstance(t *testing.T) {
	db := openTestDB(t)
	now := NowTS()

	if got := FindUserInstance(db, 1, 1); got != nil {
		t.Errorf("expected nil for missing instance, got %+v", got)
	}

	inst := models.ChallengeInstance{
		UserID: 1, ChallengeID: 1, DockerProjectName: "find-p",
		RuntimeComposePath: "/tmp/find.yml", ServiceName: "web",
		HostPort: 40030, ContainerPort: 80, CreatedTS: now, ExpiresTS: now + 600,
	}
	if err := db.Create(&inst).Error; err != nil {
		t.Fatalf("failed to create instance: %v", err)
	}

	got := FindUserInstance(db, 1, 1)
	if got == nil || got.DockerProjectName != "find-p" {
		t.Errorf("FindUserInstance returned %+v", got)
	}
}

func TestProvisionInstanceTemplateErrors(t *testing.T) {
	db := openTestDB(t)
	t.Setenv("CHALLENGE_DOCKER_ROOT", t.TempDir())

	challenge := createTestChallenge(t, db, "docker-1", 100, models.ScoreTypeBasic)
	if _, err := ProvisionInstance(db, challenge, 1); !errors.Is(err, ErrTemplateNotConfigured) {
		t.Errorf("expected ErrTemplateNotConfigured, got %v", err)
	}

	missing := "ghost-template"
	challenge.DockerTemplateID = &missing
	if _, err := ProvisionInstance(db, challenge, 1); !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("expected ErrTemplateMissing, got %v", err)
	}

	writeTemplate(t, config.DockerTemplateRoot(), "portless", "services:\n  app:\n    image: a\n")
	portless := "portless"
	challenge.DockerTemplateID = &portless
	if _, err := ProvisionInstance(db, challenge, 1); !errors.Is(err, ErrTemplateNoPort) {
		t.Errorf("expected ErrTemplateNoPort, got %v", err)
	}
}
