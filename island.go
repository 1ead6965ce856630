package physics

// island.go implements the island assembler of spec.md §4.5: a BFS over
// awake dynamic/kinematic bodies through touching, enabled contacts and
// enabled joints, grounded in the teacher's ProcessComponents/
// FloodFillComponent flood-fill (space.go) generalized from Chipmunk's
// sleep-component grouping to Box2D-style per-step solver islands.

// island is one connected component of awake bodies plus the contacts and
// joints that link them, handed to the solver as one batch (spec.md §4.5:
// "an island is solved independently; islands never share state").
type island struct {
	bodies   []*Body
	contacts []*Contact
	joints   []*Joint
}

// buildIslands walks every awake, non-static body once via BFS. Static
// bodies terminate traversal (they don't carry an island forward) and
// sleeping bodies never seed an island; a sleeping body reached through a
// contact or joint is woken and joins the island.
func buildIslands(w *World) []*island {
	for i := range w.bodies.slots {
		if w.bodies.alive[i] {
			w.bodies.slots[i].islandVisited = false
		}
	}
	for _, c := range w.contactManager.contacts {
		c.flags &^= contactIsland
	}
	for i := range w.joints.slots {
		if w.joints.alive[i] {
			w.joints.slots[i].islandFlag = false
		}
	}

	var islands []*island
	queue := make([]*Body, 0, 64)

	for i := range w.bodies.slots {
		if !w.bodies.alive[i] {
			continue
		}
		seed := &w.bodies.slots[i]
		if seed.islandVisited {
			continue
		}
		if seed.typ == BodyStatic || !seed.awake || !seed.enabled {
			continue
		}

		isl := &island{}
		queue = queue[:0]
		queue = append(queue, seed)
		seed.islandVisited = true

		for len(queue) > 0 {
			b := queue[0]
			queue = queue[1:]
			b.awake = true
			isl.bodies = append(isl.bodies, b)

			if b.typ == BodyStatic {
				continue
			}

			for _, c := range b.contacts {
				if c.flags&contactIsland != 0 {
					continue
				}
				if !c.isEnabled() || !c.isTouching() {
					continue
				}
				fA := w.mustFixture(c.fixtureA)
				fB := w.mustFixture(c.fixtureB)
				if fA.sensor || fB.sensor {
					continue
				}
				c.flags |= contactIsland
				isl.contacts = append(isl.contacts, c)

				other := w.mustBody(c.bodyA)
				if other == b {
					other = w.mustBody(c.bodyB)
				}
				if other.islandVisited || other.typ == BodyStatic {
					other.islandVisited = other.islandVisited || other.typ == BodyStatic
					continue
				}
				other.islandVisited = true
				queue = append(queue, other)
			}

			for _, jh := range b.joints {
				j := w.mustJoint(jh)
				if j.islandFlag {
					continue
				}
				j.islandFlag = true
				isl.joints = append(isl.joints, j)

				other := w.mustBody(j.bodyA)
				if other == b {
					other = w.mustBody(j.bodyB)
				}
				if other.islandVisited || other.typ == BodyStatic {
					continue
				}
				other.islandVisited = true
				queue = append(queue, other)
			}
		}

		islands = append(islands, isl)
	}

	return islands
}
