package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/skyops/go-dronedeck/internal/log"
)

// Candidate object names, tried in order. Each name is also tried with a
// leading slash (path-qualified), since scenes differ in how objects are
// addressed.
var (
	droneNames  = []string{"Quadcopter", "Drone", "quadcopter", "Quadricopter"}
	targetNames = []string{"target", "Target", "goal", "Goal"}
	cameraNames = []string{"VisionSensor", "Camera", "camera", "vision_sensor"}
)

// Objects holds the resolved scene handles for one session.
type Objects struct {
	Drone  Handle
	Target Handle

	// Camera is only valid when HasCamera is true. A missing camera is a
	// degraded mode (placeholder video), not a fatal condition.
	Camera    Handle
	HasCamera bool
}

// ResolveObjects maps the logical roles (drone, target, camera) to concrete
// scene handles. Failure to resolve the drone or target is fatal for the
// session; a missing camera only disables live video.
func ResolveObjects(ctx context.Context, insp SceneInspector) (Objects, error) {
	var objs Objects

	drone, name, err := resolveFirst(ctx, insp, droneNames)
	if err != nil {
		return Objects{}, fmt.Errorf("sim: drone object not found (tried %v): %w", droneNames, err)
	}
	objs.Drone = drone
	log.Info("sim: resolved drone", "name", name, "handle", drone)

	target, name, err := resolveFirst(ctx, insp, targetNames)
	if err != nil {
		return Objects{}, fmt.Errorf("sim: target object not found (tried %v): %w", targetNames, err)
	}
	objs.Target = target
	log.Info("sim: resolved target", "name", name, "handle", target)

	camera, name, err := resolveFirst(ctx, insp, cameraNames)
	if err == nil {
		objs.Camera = camera
		objs.HasCamera = true
		log.Info("sim: resolved camera", "name", name, "handle", camera)
		return objs, nil
	}

	// Not found by name: scan the drone's attached-object tree for a
	// vision sensor.
	camera, err = findVisionSensor(ctx, insp, drone)
	if err != nil {
		log.Warn("sim: no camera found, video will serve placeholder frames")
		return objs, nil
	}
	objs.Camera = camera
	objs.HasCamera = true
	log.Info("sim: found vision sensor in drone hierarchy", "handle", camera)
	return objs, nil
}

// resolveFirst tries each candidate name, plain then path-qualified,
// returning the first handle that resolves.
func resolveFirst(ctx context.Context, insp SceneInspector, names []string) (Handle, string, error) {
	for _, name := range names {
		for _, variant := range []string{name, "/" + name} {
			h, err := insp.GetObject(ctx, variant)
			if err == nil {
				return h, variant, nil
			}
			if !errors.Is(err, ErrObjectNotFound) {
				// Transport failure, not a miss; no point trying more names.
				return 0, "", err
			}
		}
	}
	return 0, "", ErrObjectNotFound
}

// findVisionSensor scans the subtree below root for an object whose type
// marker identifies it as a vision sensor.
func findVisionSensor(ctx context.Context, insp SceneInspector, root Handle) (Handle, error) {
	children, err := insp.ObjectsInTree(ctx, root)
	if err != nil {
		return 0, err
	}

	for _, child := range children {
		typ, err := insp.ObjectType(ctx, child)
		if err != nil {
			continue
		}
		if typ == VisionSensorType {
			return child, nil
		}
	}
	return 0, ErrObjectNotFound
}
