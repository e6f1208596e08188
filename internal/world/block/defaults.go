package block

import "github.com/go-gl/mathgl/mgl64"

func init() {
	Register(Properties{ID: AirBlockID, Name: "air", Hitbox: NoHitbox()})
	Register(Properties{ID: StoneBlockID, Name: "stone", Hitbox: FullHitbox(), Hardness: 30})
	Register(Properties{ID: GrassBlockID, Name: "grass", Hitbox: FullHitbox(), Hardness: 10})
	Register(Properties{ID: WaterBlockID, Name: "water", Hitbox: NoHitbox()})
	Register(Properties{ID: SandBlockID, Name: "sand", Hitbox: FullHitbox(), Hardness: 8})
	Register(Properties{ID: DirtBlockID, Name: "dirt", Hitbox: FullHitbox(), Hardness: 8})
	Register(Properties{ID: SnowBlockID, Name: "snow", Hitbox: FullHitbox(), Hardness: 5})
	Register(Properties{ID: IceBlockID, Name: "ice", Hitbox: FullHitbox(), Hardness: 10})
	Register(Properties{ID: LogBlockID, Name: "log", Hitbox: FullHitbox(), Hardness: 20})
	Register(Properties{ID: LeavesBlockID, Name: "leaves", Hitbox: FullHitbox(), Hardness: 2})
	Register(Properties{ID: BedrockBlockID, Name: "bedrock", Hitbox: FullHitbox()})

	Register(Properties{ID: FlowerBlockID, Name: "flower", Hitbox: NoHitbox(), Hardness: 1})
	Register(Properties{ID: TallGrassBlockID, Name: "tall_grass", Hitbox: NoHitbox(), Hardness: 1})
	Register(Properties{
		ID:       CactusBlockID,
		Name:     "cactus",
		Hitbox:   BoxHitbox(mgl64.Vec3{1.0 / 16, 0, 1.0 / 16}, mgl64.Vec3{15.0 / 16, 1, 15.0 / 16}),
		Hardness: 4,
	})

	Register(Properties{
		ID:       SlabBlockID,
		Name:     "slab",
		Hitbox:   BoxHitbox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0.5, 1}),
		Hardness: 30,
	})
	Register(Properties{
		ID:       CarpetBlockID,
		Name:     "carpet",
		Hitbox:   BoxHitbox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1.0 / 16, 1}),
		Hardness: 1,
	})
}
