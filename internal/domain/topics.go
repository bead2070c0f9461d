package domain

import "fmt"

// Topic is the closed set of subjects a member outreach can raise.
type Topic string

const (
	TopicSleep    Topic = "sleep"
	TopicApoB     Topic = "apoB"
	TopicWorkout  Topic = "workout"
	TopicTravel   Topic = "travel"
	TopicWearable Topic = "wearable"
)

// Topics lists all member-outreach topics in draw order. The order is part of
// the deterministic contract: topic selection indexes into this slice.
var Topics = []Topic{TopicSleep, TopicApoB, TopicWorkout, TopicTravel, TopicWearable}

// TopicRoutes maps each topic to the specialist it is routed to. Covering
// every Topic is checked at construction time by RouteFor.
var TopicRoutes = map[Topic]string{
	TopicSleep:    LifestyleID,
	TopicApoB:     MedicalID,
	TopicWorkout:  PTID,
	TopicTravel:   LifestyleID,
	TopicWearable: LifestyleID,
}

// RouteFor returns the specialist a topic routes to. The map is exhaustive
// over Topics; a miss means Topics and TopicRoutes drifted apart.
func RouteFor(t Topic) (string, error) {
	id, ok := TopicRoutes[t]
	if !ok {
		return "", fmt.Errorf("no route for topic %s", t)
	}
	return id, nil
}
