// Package entitytest provides a Lua base class implementing the full
// IScriptedEntity contract for tests. Every callback is reported through a
// native "void Record(const string &in)" that the test registers.
package entitytest

// Base defines CEntity. CEntity.extend() returns a subclass whose new()
// calls Init.
const Base = `
CEntity = {}
CEntity.__index = CEntity

function CEntity.extend()
	local cls = setmetatable({}, CEntity)
	cls.__index = cls
	cls.new = function(c)
		local o = setmetatable({}, c)
		o:Init()
		return o
	end
	return cls
end

function CEntity:Init()
	self.pos = Vector()
	self.size = Vector(32, 32)
	self.rot = 0.0
	self.model = Model()
	self.name = "entity"
	self.collidable = false
	self.dormant = false
	self.remove = false
end

function CEntity:MakeBox(w, h)
	local bb = BoundingBox()
	bb:AddBBoxItem(Vector(0, 0), Vector(w, h))
	self.model:Initialize2(bb, 0)
	self.collidable = true
end

function CEntity:SetFlag(key, on) self[key] = on end
function CEntity:SetName(name) self.name = name end

function CEntity:OnSpawn(v) self.pos = Vector(v) end
function CEntity:OnRelease() Record(self.name .. ":release") end
function CEntity:OnProcess() Record(self.name .. ":process") end
function CEntity:OnDraw() Record(self.name .. ":draw") end
function CEntity:OnDrawOnTop() Record(self.name .. ":top") end
function CEntity:OnWallCollided() Record(self.name .. ":wall") end
function CEntity:IsCollidable() return self.collidable end
function CEntity:OnCollided(other) Record(self.name .. ":hit:" .. other:GetName()) end
function CEntity:GetModel() return self.model end
function CEntity:GetPosition() return self.pos end
function CEntity:SetPosition(v) self.pos = Vector(v) end
function CEntity:GetSize() return self.size end
function CEntity:GetRotation() return self.rot end
function CEntity:SetRotation(r) self.rot = r end
function CEntity:OnDamage(n) end
function CEntity:NeedsRemoval() return self.remove end
function CEntity:CanBeDormant() return self.dormant end
function CEntity:GetName() return self.name end
function CEntity:GetSaveGameProperties() return "" end
`

// Player defines CPlayer, a CEntity named "player" that implements
// IPlayerEntity and records its input callbacks.
const Player = `
CPlayer = CEntity.extend()
function CPlayer:Init()
	CEntity.Init(self)
	self.name = "player"
	self.score = 0
end
function CPlayer:OnKeyPress(key, down) Record("key:" .. key .. ":" .. tostring(down)) end
function CPlayer:OnMousePress(key, down) Record("mouse:" .. key .. ":" .. tostring(down)) end
function CPlayer:OnUpdateCursor(pos) Record("cursor:" .. pos.x .. ":" .. pos.y) end
function CPlayer:AddPlayerScore(n) self.score = self.score + n end
function CPlayer:GetPlayerScore() return self.score end
`
